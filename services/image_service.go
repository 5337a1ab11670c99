package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	MaxImageBytes     = 5 << 20
	MaxListingImages  = 10
	imageBucketName   = "listing_images"
	imagesRoutePrefix = "/api/images/"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageExtension returns the file extension for an accepted content type.
func ImageExtension(contentType string) (string, bool) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := imageExtensions[ct]
	return ext, ok
}

// StoredObject is where an upload ended up. Key is what Delete takes.
type StoredObject struct {
	Key string
	URL string
}

type ImageStorage interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (StoredObject, error)
	Delete(ctx context.Context, key string) error
}

//
// ===========================================================
//  LOCAL DISK
// ===========================================================
//

// LocalStorage writes under Dir, served by the router at /uploads.
type LocalStorage struct {
	Dir     string
	BaseURL string
}

func NewLocalStorage(dir, baseURL string) *LocalStorage {
	if dir == "" {
		dir = "uploads"
	}
	return &LocalStorage{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStorage) fullPath(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.Dir, filepath.FromSlash(clean)), nil
}

func (s *LocalStorage) Put(ctx context.Context, key, _ string, r io.Reader) (StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return StoredObject{}, err
	}
	full, err := s.fullPath(key)
	if err != nil {
		return StoredObject{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return StoredObject{}, fmt.Errorf("mkdir uploads dir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return StoredObject{}, fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(full)
		return StoredObject{}, fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return StoredObject{}, fmt.Errorf("close file: %w", err)
	}
	return StoredObject{Key: key, URL: s.BaseURL + "/uploads/" + key}, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	full, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

//
// ===========================================================
//  MONGODB GRIDFS
// ===========================================================
//

// GridFSStorage keeps images in a GridFS bucket. Keys are file ObjectIDs.
type GridFSStorage struct {
	bucket  *gridfs.Bucket
	BaseURL string
}

func NewGridFSStorage(db *mongo.Database, baseURL string) (*GridFSStorage, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(imageBucketName))
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}
	return &GridFSStorage{bucket: bucket, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *GridFSStorage) Put(ctx context.Context, key, contentType string, r io.Reader) (StoredObject, error) {
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType, "key": key})
	stream, err := s.bucket.OpenUploadStream(key, opts)
	if err != nil {
		return StoredObject{}, fmt.Errorf("open upload stream: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetWriteDeadline(deadline)
	}
	if _, err := io.Copy(stream, r); err != nil {
		_ = stream.Abort()
		return StoredObject{}, fmt.Errorf("upload: %w", err)
	}
	if err := stream.Close(); err != nil {
		return StoredObject{}, fmt.Errorf("finish upload: %w", err)
	}
	id := stream.FileID.(primitive.ObjectID).Hex()
	return StoredObject{Key: id, URL: s.BaseURL + imagesRoutePrefix + id}, nil
}

func (s *GridFSStorage) Delete(_ context.Context, key string) error {
	oid, err := primitive.ObjectIDFromHex(key)
	if err != nil {
		return fmt.Errorf("invalid image id: %w", err)
	}
	if err := s.bucket.Delete(oid); err != nil && err != gridfs.ErrFileNotFound {
		return err
	}
	return nil
}

// Open streams a stored image. The caller closes the reader.
func (s *GridFSStorage) Open(ctx context.Context, id string) (io.ReadCloser, string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, "", ErrInvalidImage
	}
	stream, err := s.bucket.OpenDownloadStream(oid)
	if err != nil {
		if err == gridfs.ErrFileNotFound {
			return nil, "", ErrInvalidImage
		}
		return nil, "", err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(deadline)
	}
	contentType := "application/octet-stream"
	if f := stream.GetFile(); f != nil && len(f.Metadata) > 0 {
		var meta struct {
			ContentType string `bson:"contentType"`
		}
		if bson.Unmarshal(f.Metadata, &meta) == nil && meta.ContentType != "" {
			contentType = meta.ContentType
		}
	}
	return stream, contentType, nil
}
