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

// UserRepository persists operator accounts in the "users" collection.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a MongoDB user repository and ensures the unique
// index on email.
func NewUserRepository(db *mongo.Database) (repositories.UserRepository, error) {
	collection := db.Collection("users")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user email index: %w", err)
	}

	return &UserRepository{collection: collection}, nil
}

// Create implements repositories.UserRepository.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Machines == nil {
		user.Machines = []string{}
	}
	if user.Notifications == nil {
		user.Notifications = []entities.Notification{}
	}

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %q", entities.ErrEmailTaken, user.Email)
		}
		return fmt.Errorf("failed to create user %q: %w", user.Email, err)
	}
	return nil
}

// GetByEmail implements repositories.UserRepository.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %q", entities.ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("failed to get user %q: %w", email, err)
	}
	return &user, nil
}

// Update implements repositories.UserRepository.
func (r *UserRepository) Update(ctx context.Context, user *entities.User) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"email": user.Email},
		bson.M{"$set": bson.M{
			"machines":   user.Machines,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update user %q: %w", user.Email, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %q", entities.ErrUserNotFound, user.Email)
	}
	return nil
}

// AppendNotification implements repositories.UserRepository with a single
// $push so concurrent notifications never overwrite each other.
func (r *UserRepository) AppendNotification(ctx context.Context, email string, notification entities.Notification) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"email": email},
		bson.M{
			"$push": bson.M{"notifications": notification},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to append notification for %q: %w", email, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %q", entities.ErrUserNotFound, email)
	}
	return nil
}

// FindByMachine implements repositories.UserRepository via a set-membership
// query on the owned-machines array.
func (r *UserRepository) FindByMachine(ctx context.Context, machineID string) ([]*entities.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"machines": machineID})
	if err != nil {
		return nil, fmt.Errorf("failed to find owners of machine %q: %w", machineID, err)
	}
	defer cursor.Close(ctx)

	var users []*entities.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}
