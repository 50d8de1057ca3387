package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/cutstock/optima/internal/domain"
)

// materialTypeDoc mirrors domain.MaterialType (§3: "identity of a
// material... immutable once referenced by stock"). This repository only
// ever reads the collection; material type CRUD belongs to the wider
// platform and is out of scope here.
type materialTypeDoc struct {
	ID        string  `bson:"_id"`
	Name      string  `bson:"name"`
	Rotatable bool    `bson:"rotatable"`
	Density   float64 `bson:"density"`
}

// MaterialType resolves a material type by id, satisfying
// internal/optimizer.MaterialLookup so the 2D converter can honor a
// material's rotation default. found is false for an unknown id rather
// than an error, matching the optimizer port's "best-effort lookup"
// contract (an unknown material type falls back to the scenario's own
// allowRotation setting).
func (r *Repository) MaterialType(ctx context.Context, materialTypeID string) (domain.MaterialType, bool) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	var doc materialTypeDoc
	if err := r.materialTypes.FindOne(ctx, bson.M{"_id": materialTypeID}).Decode(&doc); err != nil {
		return domain.MaterialType{}, false
	}
	return domain.MaterialType{ID: doc.ID, Name: doc.Name, Rotatable: doc.Rotatable, Density: doc.Density}, true
}

func materialTypesCollection(db *mongo.Database) *mongo.Collection {
	return db.Collection("material_types")
}
