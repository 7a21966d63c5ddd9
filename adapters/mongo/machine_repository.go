package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vendfleet/server/domain/entities"
	"github.com/vendfleet/server/domain/repositories"
)

// MachineRepository persists machines in the "machines" collection. Every
// write of a full record is conditional on the revision it was read at, so a
// concurrent writer cannot be silently overwritten.
type MachineRepository struct {
	collection *mongo.Collection
}

// NewMachineRepository creates a MongoDB machine repository and ensures the
// unique index on the machine id.
func NewMachineRepository(db *mongo.Database) (repositories.MachineRepository, error) {
	collection := db.Collection("machines")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create machine id index: %w", err)
	}

	return &MachineRepository{collection: collection}, nil
}

// Create implements repositories.MachineRepository.
func (r *MachineRepository) Create(ctx context.Context, machine *entities.Machine) error {
	now := time.Now()
	machine.CreatedAt = now
	machine.UpdatedAt = now
	machine.Revision = 1

	if _, err := r.collection.InsertOne(ctx, machine); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %q", entities.ErrMachineExists, machine.ID)
		}
		return fmt.Errorf("failed to create machine %q: %w", machine.ID, err)
	}
	return nil
}

// GetByID implements repositories.MachineRepository.
func (r *MachineRepository) GetByID(ctx context.Context, id string) (*entities.Machine, error) {
	var machine entities.Machine
	err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&machine)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %q", entities.ErrMachineNotFound, id)
		}
		return nil, fmt.Errorf("failed to get machine %q: %w", id, err)
	}
	return &machine, nil
}

// GetByIDs implements repositories.MachineRepository.
func (r *MachineRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Machine, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	defer cursor.Close(ctx)

	var machines []*entities.Machine
	if err := cursor.All(ctx, &machines); err != nil {
		return nil, fmt.Errorf("failed to decode machines: %w", err)
	}
	return machines, nil
}

// Update implements repositories.MachineRepository. The filter matches both
// id and revision; a concurrent update in between bumps the stored revision
// and makes this write match nothing.
func (r *MachineRepository) Update(ctx context.Context, machine *entities.Machine) error {
	readRevision := machine.Revision
	machine.Revision++
	machine.UpdatedAt = time.Now()

	result, err := r.collection.ReplaceOne(
		ctx,
		bson.M{"id": machine.ID, "revision": readRevision},
		machine,
	)
	if err != nil {
		machine.Revision = readRevision
		return fmt.Errorf("failed to update machine %q: %w", machine.ID, err)
	}
	if result.MatchedCount == 0 {
		machine.Revision = readRevision
		// Either the machine vanished or another writer won the race.
		count, err := r.collection.CountDocuments(ctx, bson.M{"id": machine.ID})
		if err == nil && count == 0 {
			return fmt.Errorf("%w: %q", entities.ErrMachineNotFound, machine.ID)
		}
		return fmt.Errorf("%w: machine %q", entities.ErrRevisionConflict, machine.ID)
	}
	return nil
}

// SetLocation implements repositories.MachineRepository.
func (r *MachineRepository) SetLocation(ctx context.Context, id, location string) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{
			"$set": bson.M{"location": location, "updated_at": time.Now()},
			"$inc": bson.M{"revision": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update location of machine %q: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %q", entities.ErrMachineNotFound, id)
	}
	return nil
}
