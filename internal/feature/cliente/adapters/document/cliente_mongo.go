// Package document provides the document-store repository implementation for the cliente feature.
package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"cliente_backend/internal/feature/cliente/domain"
	"cliente_backend/internal/feature/cliente/domain/entity"
	"cliente_backend/internal/feature/cliente/usecase"
)

// CollectionName is the collection holding Cliente documents.
const CollectionName = "clientes"

// clienteDocument is the BSON shape of a Cliente.
type clienteDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	Nome      string    `bson:"nome"`
	Email     string    `bson:"email"`
	Telefone  string    `bson:"telefone"`
	Endereco  string    `bson:"endereco"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d *clienteDocument) toEntity() entity.Cliente {
	return entity.Cliente{
		ID:        d.ID,
		UserID:    d.UserID,
		Nome:      d.Nome,
		Email:     d.Email,
		Telefone:  d.Telefone,
		Endereco:  d.Endereco,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// clienteMongo is a MongoDB implementation of the ClienteRepository interface.
type clienteMongo struct {
	coll *mongo.Collection
	now  func() time.Time
}

var _ usecase.ClienteRepository = (*clienteMongo)(nil)

// NewClienteRepository creates a ClienteRepository backed by the clientes collection of db.
func NewClienteRepository(db *mongo.Database) *clienteMongo {
	return &clienteMongo{
		coll: db.Collection(CollectionName),
		// BSON dates carry millisecond precision
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// EnsureIndexes creates the (userId, createdAt) index used by List.
func (r *clienteMongo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create clientes index: %w", err)
	}
	return nil
}

func ownedFilter(ownerID, id string) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "userId", Value: ownerID}}
}

// setDocument builds the $set body for a patch.
func setDocument(p entity.ClientePatch, now time.Time) bson.D {
	set := bson.D{}
	if p.Nome != nil {
		set = append(set, bson.E{Key: "nome", Value: *p.Nome})
	}
	if p.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *p.Email})
	}
	if p.Telefone != nil {
		set = append(set, bson.E{Key: "telefone", Value: *p.Telefone})
	}
	if p.Endereco != nil {
		set = append(set, bson.E{Key: "endereco", Value: *p.Endereco})
	}
	return append(set, bson.E{Key: "updatedAt", Value: now})
}

// Create inserts a new document.
func (r *clienteMongo) Create(ctx context.Context, ownerID string, in entity.ClienteInput) (*entity.Cliente, error) {
	now := r.now()
	doc := clienteDocument{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Nome:      in.Nome,
		Email:     in.Email,
		Telefone:  in.Telefone,
		Endereco:  in.Endereco,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert cliente: %w", err)
	}
	c := doc.toEntity()
	return &c, nil
}

// Update applies the patch and returns the document after the update.
func (r *clienteMongo) Update(ctx context.Context, ownerID, id string, patch entity.ClientePatch) (*entity.Cliente, error) {
	var doc clienteDocument
	err := r.coll.FindOneAndUpdate(ctx,
		ownedFilter(ownerID, id),
		bson.D{{Key: "$set", Value: setDocument(patch, r.now())}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrClienteNotFound
		}
		return nil, fmt.Errorf("failed to update cliente: %w", err)
	}
	c := doc.toEntity()
	return &c, nil
}

// Delete removes the document owned by ownerID.
func (r *clienteMongo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.coll.DeleteOne(ctx, ownedFilter(ownerID, id))
	if err != nil {
		return fmt.Errorf("failed to delete cliente: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrClienteNotFound
	}
	return nil
}

// Get retrieves a single document owned by ownerID.
func (r *clienteMongo) Get(ctx context.Context, ownerID, id string) (*entity.Cliente, error) {
	var doc clienteDocument
	if err := r.coll.FindOne(ctx, ownedFilter(ownerID, id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrClienteNotFound
		}
		return nil, fmt.Errorf("failed to get cliente: %w", err)
	}
	c := doc.toEntity()
	return &c, nil
}

// List returns the owner's documents sorted by createdAt descending.
func (r *clienteMongo) List(ctx context.Context, ownerID string) ([]entity.Cliente, error) {
	cur, err := r.coll.Find(ctx,
		bson.D{{Key: "userId", Value: ownerID}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list clientes: %w", err)
	}

	var docs []clienteDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode clientes: %w", err)
	}

	out := make([]entity.Cliente, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toEntity())
	}
	return out, nil
}
