package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const bucketName = "uploads"

type GridFSStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewGridFSStore(ctx context.Context, uri, dbName string) (*GridFSStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &GridFSStore{client: client, db: client.Database(dbName)}, nil
}

// bucket returns a fresh bucket; deadlines are per bucket, not per call.
func (s *GridFSStore) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = bucket.SetReadDeadline(dl)
		_ = bucket.SetWriteDeadline(dl)
	}
	return bucket, nil
}

func (s *GridFSStore) Put(ctx context.Context, objectID, filename, contentType string, r io.Reader) (int64, error) {
	bucket, err := s.bucket(ctx)
	if err != nil {
		return 0, err
	}

	opts := options.GridFSUpload().SetMetadata(bson.M{"content_type": contentType})
	stream, err := bucket.OpenUploadStreamWithID(objectID, filename, opts)
	if err != nil {
		return 0, fmt.Errorf("open upload stream: %w", err)
	}

	n, err := io.Copy(stream, r)
	if err != nil {
		_ = stream.Abort()
		return 0, fmt.Errorf("write object: %w", err)
	}
	if err := stream.Close(); err != nil {
		return 0, fmt.Errorf("close upload stream: %w", err)
	}
	return n, nil
}

func (s *GridFSStore) Open(ctx context.Context, objectID string) (io.ReadCloser, error) {
	bucket, err := s.bucket(ctx)
	if err != nil {
		return nil, err
	}
	// the download stream outlives ctx, so no read deadline
	_ = bucket.SetReadDeadline(time.Time{})

	stream, err := bucket.OpenDownloadStream(objectID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open download stream: %w", err)
	}
	return stream, nil
}

func (s *GridFSStore) Delete(ctx context.Context, objectID string) error {
	bucket, err := s.bucket(ctx)
	if err != nil {
		return err
	}
	if err := bucket.Delete(objectID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *GridFSStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
