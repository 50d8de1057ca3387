// Package repository implements the Scenario/Plan persistence described in
// spec.md §4.8: tenant-scoped reads and writes, a timestamp-prefixed plan
// number generator with retry-on-conflict, and the dense
// (planId,sequence) uniqueness invariant for CuttingPlanStock rows.
//
// Grounded on features/run/mongo/{store.go,clients/mongo}'s
// Store-wraps-Client-wraps-collection layering: a thin Store exposes the
// domain-shaped operations, a client struct owns the actual
// driver/collection calls and index setup. Tenant scoping and plan-number
// generation have no teacher analogue (the teacher's run store is
// single-tenant, append-only run metadata), so that part is grounded
// directly on spec.md §4.8/§3 instead.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/cutstock/optima/internal/tenant"
)

const defaultOpTimeout = 5 * time.Second

// Options configures the Mongo-backed repository.
type Options struct {
	Client   *mongo.Client
	Database string
	Timeout  time.Duration
}

// Repository bundles the Scenario and Plan stores behind one Mongo
// database connection, mirroring the teacher's one-client-per-feature
// Options shape but scoped to the three collections §4.8 names.
type Repository struct {
	scenarios     *mongo.Collection
	plans         *mongo.Collection
	planStock     *mongo.Collection
	counters      *mongo.Collection
	materialTypes *mongo.Collection
	timeout       time.Duration
}

// New connects the repository's collections and ensures the indexes the
// invariants in spec.md §3/§4.8 require.
func New(ctx context.Context, opts Options) (*Repository, error) {
	if opts.Client == nil {
		return nil, errors.New("repository: mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("repository: database name is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	db := opts.Client.Database(opts.Database)
	r := &Repository{
		scenarios:     db.Collection("optimization_scenarios"),
		plans:         db.Collection("cutting_plans"),
		planStock:     db.Collection("cutting_plan_stocks"),
		counters:      db.Collection("plan_number_counters"),
		materialTypes: materialTypesCollection(db),
		timeout:       timeout,
	}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("repository: ensure indexes: %w", err)
	}
	return r, nil
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if _, err := r.plans.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "plan_number", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := r.planStock.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "cutting_plan_id", Value: 1}, {Key: "sequence", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Ping checks connectivity, used by health checks wiring this repository
// into the same readiness surface as the teacher's Mongo clients.
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.scenarios.Database().Client().Ping(ctx, readpref.Primary())
}

// tenantFilter extends filter with a tenant_id match when ctx carries an
// active tenant, per spec.md §3's conditional tenant scoping.
func tenantFilter(ctx context.Context, filter bson.M) bson.M {
	if id, ok := tenant.FromContext(ctx); ok && id != "" {
		filter["tenant_id"] = id
	}
	return filter
}

func isDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
