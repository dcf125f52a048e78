// Package app wires the worksheet editor's domain packages behind the
// HTTP API: sessions, worksheet CRUD, the action reducer, layout
// endpoints, history, search, export and asset uploads.
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"lectio/api/internal/auth"
	"lectio/api/internal/authpw"
	"lectio/api/internal/block"
	"lectio/api/internal/config"
	"lectio/api/internal/document"
	"lectio/api/internal/email"
	"lectio/api/internal/export"
	"lectio/api/internal/history"
	"lectio/api/internal/layout"
	"lectio/api/internal/rbac"
	"lectio/api/internal/search"
	"lectio/api/internal/session"
	"lectio/api/internal/store"
	"lectio/api/internal/util"
)

type dataStore interface {
	Ping(ctx context.Context) error
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
	ListWorksheets(ctx context.Context, ownerID string) ([]store.Worksheet, error)
	GetWorksheet(ctx context.Context, worksheetID string) (store.Worksheet, error)
	InsertWorksheet(ctx context.Context, ws store.Worksheet) error
	UpdateWorksheet(ctx context.Context, ws store.Worksheet) error
	DeleteWorksheet(ctx context.Context, worksheetID string) error
}

// sessionStore is the Redis-backed fast path for refresh tokens and
// per-user editor state. The service runs without one; refresh tokens
// then live in Postgres and editor state only in process memory.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (string, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	SaveEditorState(ctx context.Context, worksheetID, userID string, state session.EditorState, ttl time.Duration) error
	GetEditorState(ctx context.Context, worksheetID, userID string) (session.EditorState, error)
	DropEditorState(ctx context.Context, worksheetID, userID string) error
	Ping(ctx context.Context) error
}

type historyService interface {
	EnsureWorksheetRepo(worksheetID string, initial history.Snapshot, author string) error
	CommitSnapshot(worksheetID string, snapshot history.Snapshot, author, message string) (store.RevisionInfo, error)
	GetHead(worksheetID string) (history.Snapshot, store.RevisionInfo, error)
	GetByHash(worksheetID, hash string) (history.Snapshot, error)
	History(worksheetID string, limit int) ([]store.RevisionInfo, error)
	RemoveWorksheetRepo(worksheetID string) error
}

type searchIndex interface {
	Search(q search.Query) search.Response
	IndexWorksheet(ws search.WorksheetRecord)
	DeleteWorksheet(id string)
}

type assetStore interface {
	MaxUploadSize() int64
	Upload(ctx context.Context, name, contentType string, reader io.Reader, size int64) (string, error)
}

// editorSession is the in-process editing state for one (worksheet,
// user) pair: the height recorder pagination reads from and the
// selection machine. It is mirrored to the session store so a page
// reload resumes where the user left off.
type editorSession struct {
	recorder *layout.Recorder
	machine  *layout.Machine
}

type Service struct {
	cfg     config.Config
	store   dataStore
	history historyService

	sessions sessionStore
	search   searchIndex
	assets   assetStore
	authpw   *authpw.Service
	email    *email.Service
	exporter *export.Service

	editorMu sync.Mutex
	editors  map[string]*editorSession
}

func New(cfg config.Config, data dataStore, hist historyService) *Service {
	return &Service{
		cfg:      cfg,
		store:    data,
		history:  hist,
		exporter: export.NewService(),
		editors:  make(map[string]*editorSession),
	}
}

func (s *Service) AttachSessions(ss sessionStore) { s.sessions = ss }
func (s *Service) AttachSearch(idx searchIndex)   { s.search = idx }
func (s *Service) AttachAssets(a assetStore)      { s.assets = a }

func (s *Service) AttachAuth(pw *authpw.Service, mail *email.Service) {
	s.authpw = pw
	s.email = mail
}

func (s *Service) AuthPasswordService() *authpw.Service { return s.authpw }

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// Ping reports readiness of the backing stores.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if s.sessions != nil {
		if err := s.sessions.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// --- sessions ---

type Session struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	UserID       string    `json:"userId"`
	UserName     string    `json:"userName"`
	Role         string    `json:"role"`
	JTI          string    `json:"-"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	role := string(rbac.Normalize(user.Role))
	jti := util.NewID("jti")
	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("issue access token: %w", err)
	}

	refresh := util.NewID("rft")
	refreshHash := auth.HashToken(refresh)
	refreshExpiry := time.Now().Add(s.cfg.RefreshTTL)
	if s.sessions != nil {
		err = s.sessions.SaveRefreshSession(ctx, refreshHash, user.ID, refreshExpiry)
	} else {
		err = s.store.SaveRefreshSession(ctx, refreshHash, user.ID, refreshExpiry)
	}
	if err != nil {
		return Session{}, fmt.Errorf("save refresh session: %w", err)
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// CreateSession mints a fresh token pair for a signed-in user.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	return s.issueSession(ctx, user)
}

// RefreshSession rotates a refresh token: the old token is revoked in
// the same step that mints the replacement pair.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (Session, error) {
	refreshHash := auth.HashToken(refreshToken)

	var user store.User
	if s.sessions != nil {
		userID, err := s.sessions.LookupRefreshSession(ctx, refreshHash)
		if err != nil {
			return Session{}, domainError(http.StatusUnauthorized, "INVALID_REFRESH", "refresh token is invalid or expired", nil)
		}
		user, err = s.store.GetUserByID(ctx, userID)
		if err != nil {
			return Session{}, fmt.Errorf("load user: %w", err)
		}
	} else {
		var err error
		user, err = s.store.LookupRefreshSession(ctx, refreshHash)
		if err != nil {
			return Session{}, domainError(http.StatusUnauthorized, "INVALID_REFRESH", "refresh token is invalid or expired", nil)
		}
	}

	if s.sessions != nil {
		_ = s.sessions.RevokeRefreshSession(ctx, refreshHash)
	} else {
		_ = s.store.RevokeRefreshSession(ctx, refreshHash)
	}
	return s.issueSession(ctx, user)
}

// SessionFromToken verifies a bearer token and checks the revocation
// list.
func (s *Service) SessionFromToken(ctx context.Context, token string) (auth.Claims, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return auth.Claims{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return auth.Claims{}, auth.ErrInvalidToken
	}
	return claims, nil
}

// Logout revokes the access token and, when provided, the refresh
// token.
func (s *Service) Logout(ctx context.Context, claims auth.Claims, refreshToken string) error {
	if err := s.store.RevokeAccessToken(ctx, claims.JTI, time.Unix(claims.Exp, 0)); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	if refreshToken != "" {
		refreshHash := auth.HashToken(refreshToken)
		if s.sessions != nil {
			_ = s.sessions.RevokeRefreshSession(ctx, refreshHash)
		}
		_ = s.store.RevokeRefreshSession(ctx, refreshHash)
	}
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// --- verification & reset mail ---

func (s *Service) appBaseURL() string {
	if s.cfg.CORSOrigin != "" && s.cfg.CORSOrigin != "*" {
		return strings.TrimRight(s.cfg.CORSOrigin, "/")
	}
	return "http://localhost:5173"
}

// SendVerificationEmail delivers the verification link; it reports
// whether a mail actually went out so the caller can fall back to the
// dev-mode token response.
func (s *Service) SendVerificationEmail(to, userName, token string) bool {
	if !s.SMTPConfigured() {
		return false
	}
	url := s.appBaseURL() + "/verify-email?token=" + token
	if err := s.email.SendVerificationEmail(to, userName, url); err != nil {
		return false
	}
	return true
}

func (s *Service) SendPasswordResetEmail(to, userName, token string) bool {
	if !s.SMTPConfigured() {
		return false
	}
	url := s.appBaseURL() + "/reset-password?token=" + token
	if err := s.email.SendPasswordResetEmail(to, userName, url); err != nil {
		return false
	}
	return true
}

// --- worksheets ---

type WorksheetSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Subject    string    `json:"subject,omitempty"`
	Grade      string    `json:"grade,omitempty"`
	LayoutMode string    `json:"layoutMode"`
	UpdatedBy  string    `json:"updatedBy,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type WorksheetPayload struct {
	WorksheetSummary
	GlobalFontSize int             `json:"globalFontSize"`
	Blocks         json.RawMessage `json:"blocks"`
	LayoutWarnings []string        `json:"layoutWarnings,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func summaryOf(ws store.Worksheet) WorksheetSummary {
	return WorksheetSummary{
		ID:         ws.ID,
		Title:      ws.Title,
		Subject:    ws.Subject,
		Grade:      ws.Grade,
		LayoutMode: ws.LayoutMode,
		UpdatedBy:  ws.UpdatedBy,
		UpdatedAt:  ws.UpdatedAt,
	}
}

func payloadOf(ws store.Worksheet) WorksheetPayload {
	blocks := ws.Blocks
	if len(blocks) == 0 {
		blocks = json.RawMessage(`[]`)
	}
	payload := WorksheetPayload{
		WorksheetSummary: summaryOf(ws),
		GlobalFontSize:   ws.GlobalFontSize,
		Blocks:           blocks,
		CreatedAt:        ws.CreatedAt,
	}
	if doc, err := docOf(ws); err == nil {
		payload.LayoutWarnings = doc.ValidateLayout()
	}
	return payload
}

func docOf(ws store.Worksheet) (document.Worksheet, error) {
	blocks, err := document.DecodeBlocks(ws.Blocks)
	if err != nil {
		return document.Worksheet{}, err
	}
	return document.Worksheet{
		ID:             ws.ID,
		Title:          ws.Title,
		Subject:        ws.Subject,
		Grade:          ws.Grade,
		GlobalFontSize: ws.GlobalFontSize,
		LayoutMode:     document.NormalizeMode(ws.LayoutMode),
		Blocks:         blocks,
	}, nil
}

func snapshotOf(ws store.Worksheet) history.Snapshot {
	return history.Snapshot{
		Title:          ws.Title,
		Subject:        ws.Subject,
		Grade:          ws.Grade,
		LayoutMode:     ws.LayoutMode,
		GlobalFontSize: ws.GlobalFontSize,
		Blocks:         ws.Blocks,
	}
}

func recordOf(ws store.Worksheet) search.WorksheetRecord {
	return search.WorksheetRecord{
		ID:      ws.ID,
		Title:   ws.Title,
		Subject: ws.Subject,
		Grade:   ws.Grade,
		OwnerID: ws.OwnerID,
	}
}

func (s *Service) requireWrite(claims auth.Claims) error {
	if !s.Can(claims.Role, rbac.ActionWrite) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "role cannot edit worksheets", nil)
	}
	return nil
}

// loadOwned fetches the worksheet and enforces that the caller owns it
// or is an admin.
func (s *Service) loadOwned(ctx context.Context, claims auth.Claims, worksheetID string) (store.Worksheet, error) {
	ws, err := s.store.GetWorksheet(ctx, worksheetID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Worksheet{}, domainError(http.StatusNotFound, "NOT_FOUND", "worksheet not found", nil)
	}
	if err != nil {
		return store.Worksheet{}, fmt.Errorf("load worksheet: %w", err)
	}
	if ws.OwnerID != claims.Sub && rbac.Normalize(claims.Role) != rbac.RoleAdmin {
		return store.Worksheet{}, domainError(http.StatusForbidden, "FORBIDDEN", "worksheet belongs to another user", nil)
	}
	return ws, nil
}

// saveWorksheet persists the updated record, commits a history
// revision when the content actually changed, and refreshes the search
// index.
func (s *Service) saveWorksheet(ctx context.Context, ws store.Worksheet, claims auth.Claims, message string) (store.Worksheet, error) {
	ws.UpdatedBy = claims.Name
	if err := s.store.UpdateWorksheet(ctx, ws); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Worksheet{}, domainError(http.StatusNotFound, "NOT_FOUND", "worksheet not found", nil)
		}
		return store.Worksheet{}, fmt.Errorf("update worksheet: %w", err)
	}

	snapshot := snapshotOf(ws)
	if head, _, err := s.history.GetHead(ws.ID); err != nil || history.HasChanges(head, snapshot) {
		if _, err := s.history.CommitSnapshot(ws.ID, snapshot, claims.Name, message); err != nil {
			return store.Worksheet{}, fmt.Errorf("commit revision: %w", err)
		}
	}

	if s.search != nil {
		s.search.IndexWorksheet(recordOf(ws))
	}
	return ws, nil
}

func (s *Service) ListWorksheets(ctx context.Context, claims auth.Claims) ([]WorksheetSummary, error) {
	items, err := s.store.ListWorksheets(ctx, claims.Sub)
	if err != nil {
		return nil, err
	}
	summaries := make([]WorksheetSummary, 0, len(items))
	for _, ws := range items {
		summaries = append(summaries, summaryOf(ws))
	}
	return summaries, nil
}

type CreateWorksheetInput struct {
	Title          string `json:"title"`
	Subject        string `json:"subject"`
	Grade          string `json:"grade"`
	LayoutMode     string `json:"layoutMode"`
	GlobalFontSize int    `json:"globalFontSize"`
}

func (s *Service) CreateWorksheet(ctx context.Context, claims auth.Claims, input CreateWorksheetInput) (WorksheetPayload, error) {
	if err := s.requireWrite(claims); err != nil {
		return WorksheetPayload{}, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "Untitled worksheet"
	}
	fontSize := input.GlobalFontSize
	if fontSize <= 0 {
		fontSize = 14
	}
	ws := store.Worksheet{
		ID:             util.NewID("ws"),
		OwnerID:        claims.Sub,
		Title:          title,
		Subject:        strings.TrimSpace(input.Subject),
		Grade:          strings.TrimSpace(input.Grade),
		LayoutMode:     string(document.NormalizeMode(input.LayoutMode)),
		GlobalFontSize: fontSize,
		Blocks:         json.RawMessage(`[]`),
		UpdatedBy:      claims.Name,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := s.store.InsertWorksheet(ctx, ws); err != nil {
		return WorksheetPayload{}, fmt.Errorf("insert worksheet: %w", err)
	}
	if err := s.history.EnsureWorksheetRepo(ws.ID, snapshotOf(ws), claims.Name); err != nil {
		return WorksheetPayload{}, fmt.Errorf("init worksheet history: %w", err)
	}
	if s.search != nil {
		s.search.IndexWorksheet(recordOf(ws))
	}
	return payloadOf(ws), nil
}

func (s *Service) GetWorksheet(ctx context.Context, claims auth.Claims, worksheetID string) (WorksheetPayload, error) {
	ws, err := s.loadOwned(ctx, claims, worksheetID)
	if err != nil {
		return WorksheetPayload{}, err
	}
	return payloadOf(ws), nil
}

type UpdateWorksheetInput struct {
	Title          *string `json:"title"`
	Subject        *string `json:"subject"`
	Grade          *string `json:"grade"`
	LayoutMode     *string `json:"layoutMode"`
	GlobalFontSize *int    `json:"globalFontSize"`
}

// UpdateWorksheetSettings changes document-level settings. Switching
// the layout mode away from per-block layout collapses every half
// width back to full, so the stored blocks never contradict the mode.
func (s *Service) UpdateWorksheetSettings(ctx context.Context, claims auth.Claims, worksheetID string, input UpdateWorksheetInput) (WorksheetPayload, error) {
	if err := s.requireWrite(claims); err != nil {
		return WorksheetPayload{}, err
	}
	ws, err := s.loadOwned(ctx, claims, worksheetID)
	if err != nil {
		return WorksheetPayload{}, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return WorksheetPayload{}, domainError(http.StatusBadRequest, "INVALID_TITLE", "title cannot be empty", nil)
		}
		ws.Title = title
	}
	if input.Subject != nil {
		ws.Subject = strings.TrimSpace(*input.Subject)
	}
	if input.Grade != nil {
		ws.Grade = strings.TrimSpace(*input.Grade)
	}
	if input.GlobalFontSize != nil {
		if *input.GlobalFontSize < 8 || *input.GlobalFontSize > 32 {
			return WorksheetPayload{}, domainError(http.StatusBadRequest, "INVALID_FONT_SIZE", "global font size must be between 8 and 32", nil)
		}
		ws.GlobalFontSize = *input.GlobalFontSize
	}
	if input.LayoutMode != nil {
		mode := document.NormalizeMode(*input.LayoutMode)
		if mode != document.ModeBlocks && document.NormalizeMode(ws.LayoutMode) == document.ModeBlocks {
			collapsed, err := collapseHalfWidths(ws.Blocks)
			if err != nil {
				return WorksheetPayload{}, err
			}
			ws.Blocks = collapsed
		}
		ws.LayoutMode = string(mode)
	}

	ws, err = s.saveWorksheet(ctx, ws, claims, "Update worksheet settings")
	if err != nil {
		return WorksheetPayload{}, err
	}
	return payloadOf(ws), nil
}

func collapseHalfWidths(raw json.RawMessage) (json.RawMessage, error) {
	blocks, err := document.DecodeBlocks(raw)
	if err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	for i := range blocks {
		if blocks[i].Width == block.WidthHalf {
			blocks[i].Width = block.WidthFull
			blocks[i].WidthPercent = 0
		}
	}
	encoded, err := document.EncodeBlocks(blocks)
	if err != nil {
		return nil, err
	}
	return encoded, nil
}

func (s *Service) DeleteWorksheet(ctx context.Context, claims auth.Claims, worksheetID string) error {
	if err := s.requireWrite(claims); err != nil {
		return err
	}
	if _, err := s.loadOwned(ctx, claims, worksheetID); err != nil {
		return err
	}
	if err := s.store.DeleteWorksheet(ctx, worksheetID); err != nil {
		return fmt.Errorf("delete worksheet: %w", err)
	}
	if s.search != nil {
		s.search.DeleteWorksheet(worksheetID)
	}
	if err := s.history.RemoveWorksheetRepo(worksheetID); err != nil {
		return fmt.Errorf("remove worksheet history: %w", err)
	}
	s.dropEditorSessions(ctx, worksheetID)
	return nil
}

// --- actions ---

type DispatchResult struct {
	Changed        bool             `json:"changed"`
	NewBlockID     string           `json:"newBlockId,omitempty"`
	DeletedBlockID string           `json:"deletedBlockId,omitempty"`
	Worksheet      WorksheetPayload `json:"worksheet"`
}

// DispatchAction runs one reducer action against the worksheet and
// persists the result. A deleted block also loses its measurement and
// selection.
func (s *Service) DispatchAction(ctx context.Context, claims auth.Claims, worksheetID string, action document.Action) (DispatchResult, error) {
	if err := s.requireWrite(claims); err != nil {
		return DispatchResult{}, err
	}
	ws, err := s.loadOwned(ctx, claims, worksheetID)
	if err != nil {
		return DispatchResult{}, err
	}
	doc, err := docOf(ws)
	if err != nil {
		return DispatchResult{}, err
	}

	result, err := document.Apply(&doc, action)
	if err != nil {
		return DispatchResult{}, domainError(http.StatusBadRequest, "INVALID_ACTION", err.Error(), nil)
	}

	if result.Changed {
		encoded, err := document.EncodeBlocks(doc.Blocks)
		if err != nil {
			return DispatchResult{}, err
		}
		ws.Blocks = encoded
		ws, err = s.saveWorksheet(ctx, ws, claims, actionMessage(action))
		if err != nil {
			return DispatchResult{}, err
		}
	}
	if result.DeletedBlockID != "" {
		s.forgetBlock(ctx, worksheetID, claims.Sub, result.DeletedBlockID)
	}

	return DispatchResult{
		Changed:        result.Changed,
		NewBlockID:     result.NewBlockID,
		DeletedBlockID: result.DeletedBlockID,
		Worksheet:      payloadOf(ws),
	}, nil
}

func actionMessage(action document.Action) string {
	switch action.Type {
	case document.ActionAddBlock:
		return fmt.Sprintf("Add %s block", action.BlockType)
	case document.ActionUpdateContent:
		return "Edit block content"
	case document.ActionUpdateWidth:
		return "Resize block"
	case document.ActionUpdateMargin:
		return "Adjust block spacing"
	case document.ActionMoveUp, document.ActionMoveDown:
		return "Move block"
	case document.ActionDuplicate:
		return "Duplicate block"
	case document.ActionDelete:
		return "Delete block"
	case document.ActionReorder:
		return "Reorder blocks"
	default:
		return "Edit worksheet"
	}
}

// --- layout: heights & pages ---

func (s *Service) editorKey(worksheetID, userID string) string {
	return worksheetID + "|" + userID
}

// editorFor returns the in-process editing state, hydrating it from
// the session store on first touch so a reload resumes selection and
// measurements.
func (s *Service) editorFor(ctx context.Context, worksheetID, userID string) *editorSession {
	s.editorMu.Lock()
	defer s.editorMu.Unlock()

	key := s.editorKey(worksheetID, userID)
	if es, ok := s.editors[key]; ok {
		return es
	}

	es := &editorSession{
		recorder: layout.NewRecorder(),
		machine:  layout.NewMachine(),
	}
	if s.sessions != nil {
		if saved, err := s.sessions.GetEditorState(ctx, worksheetID, userID); err == nil {
			es.recorder.Merge(saved.Heights)
			switch saved.Selection {
			case layout.StateSelected:
				es.machine.Click(layout.FocusTarget{BlockID: saved.SelectedBlockID})
			case layout.StateEditing:
				es.machine.DoubleClick(layout.FocusTarget{BlockID: saved.SelectedBlockID})
			}
		}
	}
	s.editors[key] = es
	return es
}

func (s *Service) persistEditor(ctx context.Context, worksheetID, userID string, es *editorSession) {
	if s.sessions == nil {
		return
	}
	state := session.EditorState{
		Selection:       es.machine.State(),
		SelectedBlockID: es.machine.BlockID(),
		Heights:         es.recorder.Snapshot(),
	}
	_ = s.sessions.SaveEditorState(ctx, worksheetID, userID, state, s.cfg.EditorTTL)
}

func (s *Service) forgetBlock(ctx context.Context, worksheetID, userID, blockID string) {
	es := s.editorFor(ctx, worksheetID, userID)
	es.recorder.Forget(blockID)
	es.machine.Deselect(blockID)
	s.persistEditor(ctx, worksheetID, userID, es)
}

func (s *Service) dropEditorSessions(ctx context.Context, worksheetID string) {
	s.editorMu.Lock()
	prefix := worksheetID + "|"
	users := make([]string, 0, 1)
	for key := range s.editors {
		if strings.HasPrefix(key, prefix) {
			users = append(users, strings.TrimPrefix(key, prefix))
			delete(s.editors, key)
		}
	}
	s.editorMu.Unlock()

	if s.sessions == nil {
		return
	}
	for _, userID := range users {
		_ = s.sessions.DropEditorState(ctx, worksheetID, userID)
	}
}

// ReportHeights merges a batch of measured block heights from the
// rendering host. Reports may arrive out of order; last write wins.
func (s *Service) ReportHeights(ctx context.Context, claims auth.Claims, worksheetID string, heights layout.HeightMap) error {
	if _, err := s.loadOwned(ctx, claims, worksheetID); err != nil {
		return err
	}
	es := s.editorFor(ctx, worksheetID, claims.Sub)
	es.recorder.Merge(heights)
	s.persistEditor(ctx, worksheetID, claims.Sub, es)
	return nil
}

type PageRow struct {
	BlockIDs   []string `json:"blockIds"`
	Pair       bool     `json:"pair"`
	SplitLeft  int      `json:"splitLeft,omitempty"`
	SplitRight int      `json:"splitRight,omitempty"`
	Height     float64  `json:"height"`
}

type PagePayload struct {
	Number int       `json:"number"`
	Rows   []PageRow `json:"rows"`
}

type PagesPayload struct {
	Pages           []PagePayload  `json:"pages"`
	PageCount       int            `json:"pageCount"`
	ActivityNumbers map[string]int `json:"activityNumbers"`
}

// Pages computes the current pagination from the latest reported
// heights, plus the activity numbering the host renders next to quiz
// blocks. Header-footer blocks are page chrome and never paginate.
func (s *Service) Pages(ctx context.Context, claims auth.Claims, worksheetID string) (PagesPayload, error) {
	ws, err := s.loadOwned(ctx, claims, worksheetID)
	if err != nil {
		return PagesPayload{}, err
	}
	doc, err := docOf(ws)
	if err != nil {
		return PagesPayload{}, err
	}

	es := s.editorFor(ctx, worksheetID, claims.Sub)
	flow := make([]block.Block, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		if b.Type == block.TypeHeaderFooter {
			continue
		}
		flow = append(flow, b)
	}
	pages := layout.ComputePages(flow, es.recorder.Snapshot(), layout.A4)

	payload := PagesPayload{
		Pages:           make([]PagePayload, 0, len(pages)),
		PageCount:       len(pages),
		ActivityNumbers: block.AssignActivityNumbers(doc.Blocks),
	}
	for _, page := range pages {
		pp := PagePayload{Number: page.Number, Rows: make([]PageRow, 0, len(page.Rows))}
		for _, row := range page.Rows {
			pr := PageRow{Pair: row.Pair(), Height: row.Height}
			for _, b := range row.Blocks {
				pr.BlockIDs = append(pr.BlockIDs, b.ID)
			}
			if pr.Pair {
				pr.SplitLeft, pr.SplitRight = layout.EffectiveSplit(row.Blocks[0])
			}
			pp.Rows = append(pp.Rows, pr)
		}
		payload.Pages = append(payload.Pages, pp)
	}
	return payload, nil
}

// --- layout: drag commits ---

type SplitCommitInput struct {
	BlockID string `json:"blockId"`
	Percent int    `json:"percent"`
}

// CommitSplit persists the released split ratio of a half-width pair.
// The value is snapped and clamped; only the first block of the pair
// stores a percent, the partner always renders the complement.
func (s *Service) CommitSplit(ctx context.Context, claims auth.Claims, worksheetID string, input SplitCommitInput) (DispatchResult, error) {
	percent := layout.SnapSplitPercent(input.Percent)
	return s.DispatchAction(ctx, claims, worksheetID, document.Action{
		Type:         document.ActionUpdateWidth,
		BlockID:      input.BlockID,
		Width:        block.WidthHalf,
		WidthPercent: percent,
	})
}

type MarginCommitInput struct {
	BlockID string `json:"blockId"`
	Value   int    `json:"value"`
}

// CommitMargin persists the released value of a vertical drag. For a
// spacer block the drag resizes the spacer itself; for every other
// block it sets the bottom margin.
func (s *Service) CommitMargin(ctx context.Context, claims auth.Claims, worksheetID string, input MarginCommitInput) (DispatchResult, error) {
	ws, err := s.loadOwned(ctx, claims, worksheetID)
	if err != nil {
		return DispatchResult{}, err
	}
	doc, err := docOf(ws)
	if err != nil {
		return DispatchResult{}, err
	}

	if i := doc.BlockIndex(input.BlockID); i >= 0 && doc.Blocks[i].Type == block.TypeSpacer {
		content, _ := doc.Blocks[i].Content.(block.SpacerContent)
		content.Height = layout.ClampMargin(input.Value, layout.DragSpacerHeight)
		raw, err := json.Marshal(content)
		if err != nil {
			return DispatchResult{}, fmt.Errorf("encode spacer content: %w", err)
		}
		return s.DispatchAction(ctx, claims, worksheetID, document.Action{
			Type:    document.ActionUpdateContent,
			BlockID: input.BlockID,
			Content: raw,
		})
	}

	return s.DispatchAction(ctx, claims, worksheetID, document.Action{
		Type:         document.ActionUpdateMargin,
		BlockID:      input.BlockID,
		MarginBottom: input.Value,
	})
}

// --- selection & toolbar ---

type SelectionInput struct {
	Event  string             `json:"event"`
	Target layout.FocusTarget `json:"target"`
}

type SelectionPayload struct {
	State   layout.SelectionState `json:"state"`
	BlockID string                `json:"blockId,omitempty"`
}

// SelectionEvent advances the per-user selection machine and persists
// the new state.
func (s *Service) SelectionEvent(ctx context.Context, claims auth.Claims, worksheetID string, input SelectionInput) (SelectionPayload, error) {
	if _, err := s.loadOwned(ctx, claims, worksheetID); err != nil {
		return SelectionPayload{}, err
	}

	es := s.editorFor(ctx, worksheetID, claims.Sub)
	switch input.Event {
	case "click":
		es.machine.Click(input.Target)
	case "double-click":
		es.machine.DoubleClick(input.Target)
	case "click-outside":
		if !input.Target.InsideToolbar && !input.Target.InsideSettings {
			es.machine.ClickOutside()
		}
	case "escape":
		es.machine.Escape()
	case "blur":
		es.machine.Blur(input.Target)
	default:
		return SelectionPayload{}, domainError(http.StatusBadRequest, "INVALID_EVENT", fmt.Sprintf("unknown selection event %q", input.Event), nil)
	}
	s.persistEditor(ctx, worksheetID, claims.Sub, es)

	return SelectionPayload{State: es.machine.State(), BlockID: es.machine.BlockID()}, nil
}

type ToolbarInput struct {
	Anchor   layout.Rect `json:"anchor"`
	Viewport layout.Rect `json:"viewport"`
}

// ToolbarPlacement positions the floating toolbar for the given anchor
// and viewport rects.
func (s *Service) ToolbarPlacement(input ToolbarInput) layout.Point {
	return layout.ToolbarPosition(input.Anchor, input.Viewport)
}

// --- export ---

func (s *Service) ExportWorksheet(ctx context.Context, claims auth.Claims, worksheetID string, req export.Request) (*export.Result, error) {
	ws, err := s.loadOwned(ctx, claims, worksheetID)
	if err != nil {
		return nil, err
	}
	doc, err := docOf(ws)
	if err != nil {
		return nil, err
	}
	es := s.editorFor(ctx, worksheetID, claims.Sub)
	result, err := s.exporter.Export(ctx, doc, es.recorder.Snapshot(), req)
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return nil, domainError(http.StatusServiceUnavailable, "PDF_UNAVAILABLE", "PDF rendering is not available on this server", nil)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// --- history ---

func (s *Service) ListRevisions(ctx context.Context, claims auth.Claims, worksheetID string, limit int) ([]store.RevisionInfo, error) {
	if _, err := s.loadOwned(ctx, claims, worksheetID); err != nil {
		return nil, err
	}
	revisions, err := s.history.History(worksheetID, limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return revisions, nil
}

// RestoreRevision rewinds the worksheet to a recorded revision. The
// restore itself is committed on top of the log, so nothing is ever
// rewritten.
func (s *Service) RestoreRevision(ctx context.Context, claims auth.Claims, worksheetID, hash string) (WorksheetPayload, error) {
	if err := s.requireWrite(claims); err != nil {
		return WorksheetPayload{}, err
	}
	ws, err := s.loadOwned(ctx, claims, worksheetID)
	if err != nil {
		return WorksheetPayload{}, err
	}

	snapshot, err := s.history.GetByHash(worksheetID, hash)
	if err != nil {
		return WorksheetPayload{}, domainError(http.StatusNotFound, "REVISION_NOT_FOUND", fmt.Sprintf("revision %s not found", hash), nil)
	}

	ws.Title = snapshot.Title
	ws.Subject = snapshot.Subject
	ws.Grade = snapshot.Grade
	ws.LayoutMode = string(document.NormalizeMode(snapshot.LayoutMode))
	ws.GlobalFontSize = snapshot.GlobalFontSize
	ws.Blocks = snapshot.Blocks
	if len(ws.Blocks) == 0 {
		ws.Blocks = json.RawMessage(`[]`)
	}

	ws, err = s.saveWorksheet(ctx, ws, claims, fmt.Sprintf("Restore revision %s", hash))
	if err != nil {
		return WorksheetPayload{}, err
	}
	return payloadOf(ws), nil
}

// --- search ---

type SearchInput struct {
	Text    string
	Subject string
	Grade   string
	Limit   int
	Offset  int
}

// SearchWorksheets queries the search index, scoped to the caller's
// own worksheets unless they are an admin.
func (s *Service) SearchWorksheets(claims auth.Claims, input SearchInput) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: input.Text}
	}
	q := search.Query{
		Text:          input.Text,
		FilterSubject: input.Subject,
		FilterGrade:   input.Grade,
		Limit:         input.Limit,
		Offset:        input.Offset,
	}
	if rbac.Normalize(claims.Role) != rbac.RoleAdmin {
		q.FilterOwnerID = claims.Sub
	}
	return s.search.Search(q)
}

// --- assets ---

func (s *Service) AssetsConfigured() bool { return s.assets != nil }

func (s *Service) AssetMaxUploadSize() int64 {
	if s.assets == nil {
		return 0
	}
	return s.assets.MaxUploadSize()
}

// UploadAsset stores an image in object storage and returns its URL.
func (s *Service) UploadAsset(ctx context.Context, claims auth.Claims, name, contentType string, reader io.Reader, size int64) (string, error) {
	if err := s.requireWrite(claims); err != nil {
		return "", err
	}
	if s.assets == nil {
		return "", domainError(http.StatusServiceUnavailable, "ASSETS_DISABLED", "object storage is not configured", nil)
	}
	url, err := s.assets.Upload(ctx, name, contentType, reader, size)
	if err != nil {
		return "", domainError(http.StatusBadRequest, "UPLOAD_FAILED", err.Error(), nil)
	}
	return url, nil
}
