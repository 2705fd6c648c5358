package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/filestore/internal/core/domain"
)

const collectionFiles = "files"

type FileRepository struct {
	col *mongo.Collection
}

func NewFileRepository(db *mongo.Database) *FileRepository {
	return &FileRepository{col: db.Collection(collectionFiles)}
}

type fileDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Name       string             `bson:"name"`
	Extension  string             `bson:"extension"`
	MimeType   string             `bson:"mime_type"`
	Size       int64              `bson:"size"`
	UploadDate time.Time          `bson:"upload_date"`
	OwnerID    string             `bson:"owner_id,omitempty"`
	StorageKey string             `bson:"storage_key"`
}

func (d fileDoc) toDomain() *domain.File {
	f := &domain.File{
		ID:         d.ID.Hex(),
		Name:       d.Name,
		Extension:  d.Extension,
		MimeType:   d.MimeType,
		Size:       d.Size,
		UploadDate: d.UploadDate.UTC(),
		OwnerID:    d.OwnerID,
		BlobKey:    d.StorageKey,
	}
	// Documents written before storage_key existed kept their bytes under
	// the file name.
	if f.BlobKey == "" {
		f.BlobKey = f.FileName()
	}
	return f
}

// EnsureIndexes creates the owner lookup index.
func (r *FileRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "owner_id", Value: 1}}})
	if err != nil {
		return fmt.Errorf("file indexes: %w", err)
	}
	return nil
}

func (r *FileRepository) Create(ctx context.Context, f *domain.File) (*domain.File, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := fileDoc{
		Name:       f.Name,
		Extension:  f.Extension,
		MimeType:   f.MimeType,
		Size:       f.Size,
		UploadDate: f.UploadDate,
		OwnerID:    f.OwnerID,
		StorageKey: f.BlobKey,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: insert file: %v", domain.ErrStoreUnavailable, err)
	}

	created := *f
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *FileRepository) FindByID(ctx context.Context, id string) (*domain.File, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrFileNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc fileDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: find file: %v", domain.ErrStoreUnavailable, err)
	}
	return doc.toDomain(), nil
}

// List pages through files in insertion order.
func (r *FileRepository) List(ctx context.Context, offset, limit int) ([]*domain.File, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list files: %v", domain.ErrStoreUnavailable, err)
	}
	defer cur.Close(ctx)

	files := make([]*domain.File, 0, limit)
	for cur.Next(ctx) {
		var doc fileDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode file: %w", err)
		}
		files = append(files, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: list files: %v", domain.ErrStoreUnavailable, err)
	}
	return files, nil
}

func (r *FileRepository) Update(ctx context.Context, f *domain.File) error {
	oid, err := primitive.ObjectIDFromHex(f.ID)
	if err != nil {
		return domain.ErrFileNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"name":        f.Name,
		"extension":   f.Extension,
		"mime_type":   f.MimeType,
		"size":        f.Size,
		"storage_key": f.BlobKey,
	}})
	if err != nil {
		return fmt.Errorf("%w: update file: %v", domain.ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrFileNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("%w: delete file: %v", domain.ErrStoreUnavailable, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}
