package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/media"
	"github.com/sirupsen/logrus"
)

// Record is one catalogue line of a manifest backed store.
type Record struct {
	Id              string         `json:"id"`
	ImageType       media.Type     `json:"image_type"`
	Metadata        media.Metadata `json:"metadata"`
	StorageLocation string         `json:"storage_location"`
}

// Manifest is the catalogue of a manifest backed store: the source of truth for which images exist.
type Manifest interface {
	Get(id string) (*Record, error)
	List() ([]Record, error)
	Add(record Record) error
	Remove(id string) (bool, error)
	HasLocation(location string) (bool, error)
	Close() error
}

// Blobs holds the raw bytes of a manifest backed store.
type Blobs interface {
	// Write stores data under a fresh location, asking taken whether a candidate location is already used.
	Write(data []byte, extension string, taken func(location string) (bool, error)) (string, error)
	Read(location string) ([]byte, error)
	Delete(location string) error
}

type ManifestStore struct {
	lock     sync.Mutex
	manifest Manifest
	blobs    Blobs
}

var _ Store = (*ManifestStore)(nil)

func NewManifestStore(manifest Manifest, blobs Blobs) *ManifestStore {
	return &ManifestStore{manifest: manifest, blobs: blobs}
}

func (s *ManifestStore) image(record *Record) *media.Image {
	location := record.StorageLocation
	return media.NewLazy(record.Id, record.ImageType, func() ([]byte, error) {
		return s.blobs.Read(location)
	}, record.Metadata)
}

func (s *ManifestStore) Get(id string) (*media.Image, error) {
	record, err := s.manifest.Get(id)
	if err != nil || record == nil {
		return nil, err
	}
	return s.image(record), nil
}

func (s *ManifestStore) List() ([]*media.Image, error) {
	records, err := s.manifest.List()
	if err != nil {
		return nil, err
	}
	images := make([]*media.Image, len(records))
	for i := range records {
		images[i] = s.image(&records[i])
	}
	return images, nil
}

func (s *ManifestStore) Add(img *media.Image) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	existing, err := s.manifest.Get(img.Id())
	if err != nil {
		return err
	}
	if existing != nil {
		return apimodel.AlreadyExistsf("image %s", img.Id())
	}

	data, err := img.Data()
	if err != nil {
		return fmt.Errorf("unable to read image %s: %w", img.Id(), err)
	}
	location, err := s.blobs.Write(data, img.Type().Extension(), s.manifest.HasLocation)
	if err != nil {
		return err
	}

	err = s.manifest.Add(Record{
		Id:              img.Id(),
		ImageType:       img.Type(),
		Metadata:        img.Metadata(),
		StorageLocation: location,
	})
	if err != nil {
		if delErr := s.blobs.Delete(location); delErr != nil {
			logrus.Warnf("Unable to delete orphan blob %s: %v", location, delErr)
		}
		return err
	}
	return nil
}

func (s *ManifestStore) Remove(id string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	record, err := s.manifest.Get(id)
	if err != nil || record == nil {
		return false, err
	}
	removed, err := s.manifest.Remove(id)
	if err != nil || !removed {
		return false, err
	}
	if err := s.blobs.Delete(record.StorageLocation); err != nil {
		logrus.Warnf("Unable to delete blob %s of image %s: %v", record.StorageLocation, id, err)
	}
	return true, nil
}

func (s *ManifestStore) Close() error {
	return s.manifest.Close()
}

// FileBlobs stores bytes in a folder, named after the sha256 of their content.
// Colliding names get a numeric suffix: <hash>-1.png, <hash>-2.png...
type FileBlobs struct {
	folder string
}

var _ Blobs = (*FileBlobs)(nil)

func NewFileBlobs(folder string) (*FileBlobs, error) {
	if err := os.MkdirAll(folder, 0770); err != nil {
		return nil, fmt.Errorf("unable to create blob folder %s: %w", folder, err)
	}
	return &FileBlobs{folder: folder}, nil
}

func (b *FileBlobs) Write(data []byte, extension string, taken func(location string) (bool, error)) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	location := hash + extension
	for suffix := 1; ; suffix++ {
		used, err := taken(location)
		if err != nil {
			return "", err
		}
		if !used {
			_, err := os.Stat(b.path(location))
			if errors.Is(err, os.ErrNotExist) {
				break
			}
			if err != nil {
				return "", fmt.Errorf("unable to check blob %s: %w", location, err)
			}
		}
		location = hash + "-" + strconv.Itoa(suffix) + extension
	}

	if err := os.WriteFile(b.path(location), data, 0660); err != nil {
		return "", fmt.Errorf("unable to write blob %s: %w", location, err)
	}
	return location, nil
}

func (b *FileBlobs) Read(location string) ([]byte, error) {
	data, err := os.ReadFile(b.path(location))
	if err != nil {
		return nil, fmt.Errorf("unable to read blob %s: %w", location, err)
	}
	return data, nil
}

func (b *FileBlobs) Delete(location string) error {
	err := os.Remove(b.path(location))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("unable to delete blob %s: %w", location, err)
	}
	return nil
}

func (b *FileBlobs) path(location string) string {
	return filepath.Join(b.folder, filepath.Base(location))
}
