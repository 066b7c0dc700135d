package media

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes uploaded files under a single media root. Paths returned are
// relative to the process working directory and are persisted in the DB
// alongside the rows that reference them.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

// SaveEmployeePhoto stores a gallery photo for an employee under a random
// filename so repeated uploads never collide.
func (s *Store) SaveEmployeePhoto(employeeID int64, filename string, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, "employees", fmt.Sprintf("%d", employeeID))
	name := uuid.New().String() + ext(filename)
	return s.write(dir, name, r)
}

// SaveIntervalEmployeePhoto stores the detection frame for an employee
// sighting, keyed by employee id within the interval folder.
func (s *Store) SaveIntervalEmployeePhoto(eventID int64, order int, employeeID int64, filename string, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, "intervals", fmt.Sprintf("%d_%d", eventID, order), "photo", "employee")
	name := fmt.Sprintf("%d%s", employeeID, ext(filename))
	return s.write(dir, name, r)
}

// SaveIntervalUnregisteredPhoto stores the frame for an unregistered-person
// sighting, keyed by the reported count.
func (s *Store) SaveIntervalUnregisteredPhoto(eventID int64, order, count int, filename string, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, "intervals", fmt.Sprintf("%d_%d", eventID, order), "photo", "unregistered")
	name := fmt.Sprintf("unregistered_%d%s", count, ext(filename))
	return s.write(dir, name, r)
}

// SaveEventVideo stores an event recording as {event_id}.{ext}.
func (s *Store) SaveEventVideo(eventID int64, filename string, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, "events", "video")
	name := fmt.Sprintf("%d%s", eventID, ext(filename))
	return s.write(dir, name, r)
}

// SaveRecipePreview stores the recipe cover image.
func (s *Store) SaveRecipePreview(recipeID int64, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, "recipes", fmt.Sprintf("%d", recipeID))
	return s.write(dir, "preview.jpg", r)
}

// SaveRecipeStagePhoto stores a stage photo keyed by its order index.
func (s *Store) SaveRecipeStagePhoto(recipeID int64, orderIndex int, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, "recipes", fmt.Sprintf("%d", recipeID))
	return s.write(dir, fmt.Sprintf("%d.jpg", orderIndex), r)
}

// Remove deletes a stored file. A missing file is not an error: DB rows can
// outlive their files when a crash lands between the file write and the
// transaction commit.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) write(dir, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	return path, nil
}

func ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
