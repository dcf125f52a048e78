// Package history keeps a per-worksheet revision log in local git
// repositories, one repo per worksheet with a single main branch.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"lectio/api/internal/store"
)

const snapshotFile = "worksheet.json"

// Snapshot is the worksheet state captured by one revision.
type Snapshot struct {
	Title          string          `json:"title"`
	Subject        string          `json:"subject"`
	Grade          string          `json:"grade"`
	LayoutMode     string          `json:"layoutMode"`
	GlobalFontSize int             `json:"globalFontSize"`
	Blocks         json.RawMessage `json:"blocks,omitempty"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// EnsureWorksheetRepo initializes the repo with a baseline commit.
// Calling it for an existing repo is a no-op.
func (s *Service) EnsureWorksheetRepo(worksheetID string, initial Snapshot, author string) error {
	lock := s.worksheetLock(worksheetID)
	lock.Lock()
	defer lock.Unlock()

	path := s.repoPath(worksheetID)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat repo path: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create repo dir: %w", err)
	}

	repo, err := git.PlainInit(path, false)
	if err != nil {
		return fmt.Errorf("init repo: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	payload, err := json.MarshalIndent(initial, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal initial snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, snapshotFile), append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write initial snapshot: %w", err)
	}
	if _, err := worktree.Add(snapshotFile); err != nil {
		return fmt.Errorf("git add initial snapshot: %w", err)
	}
	hash, err := worktree.Commit("Create worksheet", &git.CommitOptions{
		Author: signature(author),
	})
	if err != nil {
		return fmt.Errorf("commit initial snapshot: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), hash)); err != nil {
		return fmt.Errorf("set main branch ref: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return fmt.Errorf("set HEAD to main: %w", err)
	}
	return nil
}

// CommitSnapshot records the current worksheet state as a revision.
func (s *Service) CommitSnapshot(worksheetID string, snapshot Snapshot, author, message string) (store.RevisionInfo, error) {
	lock := s.worksheetLock(worksheetID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(worksheetID))
	if err != nil {
		return store.RevisionInfo{}, fmt.Errorf("open repo: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return store.RevisionInfo{}, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return store.RevisionInfo{}, fmt.Errorf("marshal snapshot: %w", err)
	}

	repoRoot := worktree.Filesystem.Root()
	if err := os.WriteFile(filepath.Join(repoRoot, snapshotFile), append(payload, '\n'), 0o644); err != nil {
		return store.RevisionInfo{}, fmt.Errorf("write snapshot: %w", err)
	}

	if _, err := worktree.Add(snapshotFile); err != nil {
		return store.RevisionInfo{}, fmt.Errorf("git add snapshot: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: signature(author),
	})
	if err != nil {
		return store.RevisionInfo{}, fmt.Errorf("commit snapshot: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return store.RevisionInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toRevisionInfo(commitObj), nil
}

// GetHead returns the latest snapshot and its revision info.
func (s *Service) GetHead(worksheetID string) (Snapshot, store.RevisionInfo, error) {
	lock := s.worksheetLock(worksheetID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(worksheetID))
	if err != nil {
		return Snapshot{}, store.RevisionInfo{}, fmt.Errorf("open repo: %w", err)
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	if err != nil {
		return Snapshot{}, store.RevisionInfo{}, fmt.Errorf("resolve main: %w", err)
	}

	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return Snapshot{}, store.RevisionInfo{}, fmt.Errorf("load commit object: %w", err)
	}

	snapshot, err := readSnapshotFromCommit(commitObj)
	if err != nil {
		return Snapshot{}, store.RevisionInfo{}, err
	}
	return snapshot, toRevisionInfo(commitObj), nil
}

// GetByHash loads the snapshot recorded at a specific revision.
func (s *Service) GetByHash(worksheetID, hash string) (Snapshot, error) {
	lock := s.worksheetLock(worksheetID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(worksheetID))
	if err != nil {
		return Snapshot{}, fmt.Errorf("open repo: %w", err)
	}

	resolvedHash, err := resolveHash(repo, hash)
	if err != nil {
		return Snapshot{}, err
	}
	commitObj, err := repo.CommitObject(resolvedHash)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read revision %s: %w", hash, err)
	}
	return readSnapshotFromCommit(commitObj)
}

// History lists revisions newest first, up to limit (0 = all).
func (s *Service) History(worksheetID string, limit int) ([]store.RevisionInfo, error) {
	lock := s.worksheetLock(worksheetID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(worksheetID))
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	if err != nil {
		return nil, fmt.Errorf("resolve main: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]store.RevisionInfo, 0, limit)
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toRevisionInfo(commitObj))
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// RemoveWorksheetRepo deletes the revision log when the worksheet is
// deleted.
func (s *Service) RemoveWorksheetRepo(worksheetID string) error {
	lock := s.worksheetLock(worksheetID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.repoPath(worksheetID)); err != nil {
		return fmt.Errorf("remove repo dir: %w", err)
	}
	return nil
}

// HasChanges reports whether two snapshots differ, comparing block
// JSON structurally so formatting noise does not create revisions.
func HasChanges(from, to Snapshot) bool {
	if from.Title != to.Title ||
		from.Subject != to.Subject ||
		from.Grade != to.Grade ||
		from.LayoutMode != to.LayoutMode ||
		from.GlobalFontSize != to.GlobalFontSize {
		return true
	}
	return !bytes.Equal(normalizeBlocks(from.Blocks), normalizeBlocks(to.Blocks))
}

func (s *Service) repoPath(worksheetID string) string {
	return filepath.Join(s.baseDir, worksheetID)
}

func (s *Service) worksheetLock(worksheetID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[worksheetID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[worksheetID] = lock
	return lock
}

func signature(author string) *object.Signature {
	return &object.Signature{
		Name:  author,
		Email: fmt.Sprintf("%s@local.lectio.dev", sanitizeEmail(author)),
		When:  time.Now(),
	}
}

func readSnapshotFromCommit(commitObj *object.Commit) (Snapshot, error) {
	file, err := commitObj.File(snapshotFile)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %s from commit: %w", snapshotFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return Snapshot{}, fmt.Errorf("open snapshot reader: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot bytes: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decode revision snapshot: %w", err)
	}
	return snapshot, nil
}

func toRevisionInfo(commitObj *object.Commit) store.RevisionInfo {
	return store.RevisionInfo{
		Hash:    commitObj.Hash.String()[:7],
		Message: commitObj.Message,
		Author:  commitObj.Author.Name,
		When:    commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func normalizeBlocks(blocks json.RawMessage) []byte {
	if len(blocks) == 0 {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(blocks, &parsed); err != nil {
		return nil
	}
	normalized, err := json.Marshal(parsed)
	if err != nil {
		return nil
	}
	return normalized
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve revision %s: %w", hash, err)
	}
	return *resolved, nil
}
