package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"lectio/api/internal/auth"
	"lectio/api/internal/block"
	"lectio/api/internal/config"
	"lectio/api/internal/document"
	"lectio/api/internal/history"
	"lectio/api/internal/layout"
	"lectio/api/internal/store"
)

type refreshRecord struct {
	userID    string
	expiresAt time.Time
	revoked   bool
}

type fakeStore struct {
	users      map[string]store.User
	worksheets map[string]store.Worksheet
	refresh    map[string]refreshRecord
	revoked    map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[string]store.User),
		worksheets: make(map[string]store.Worksheet),
		refresh:    make(map[string]refreshRecord),
		revoked:    make(map[string]bool),
	}
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) GetUserByID(_ context.Context, userID string) (store.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeStore) SaveRefreshSession(_ context.Context, tokenHash, userID string, expiresAt time.Time) error {
	f.refresh[tokenHash] = refreshRecord{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeStore) LookupRefreshSession(_ context.Context, tokenHash string) (store.User, error) {
	record, ok := f.refresh[tokenHash]
	if !ok || record.revoked || time.Now().After(record.expiresAt) {
		return store.User{}, sql.ErrNoRows
	}
	return f.GetUserByID(context.Background(), record.userID)
}

func (f *fakeStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	record := f.refresh[tokenHash]
	record.revoked = true
	f.refresh[tokenHash] = record
	return nil
}

func (f *fakeStore) RevokeAccessToken(_ context.Context, jti string, _ time.Time) error {
	f.revoked[jti] = true
	return nil
}

func (f *fakeStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], nil
}

func (f *fakeStore) ListWorksheets(_ context.Context, ownerID string) ([]store.Worksheet, error) {
	items := make([]store.Worksheet, 0)
	for _, ws := range f.worksheets {
		if ws.OwnerID == ownerID {
			items = append(items, ws)
		}
	}
	return items, nil
}

func (f *fakeStore) GetWorksheet(_ context.Context, worksheetID string) (store.Worksheet, error) {
	ws, ok := f.worksheets[worksheetID]
	if !ok {
		return store.Worksheet{}, sql.ErrNoRows
	}
	return ws, nil
}

func (f *fakeStore) InsertWorksheet(_ context.Context, ws store.Worksheet) error {
	f.worksheets[ws.ID] = ws
	return nil
}

func (f *fakeStore) UpdateWorksheet(_ context.Context, ws store.Worksheet) error {
	if _, ok := f.worksheets[ws.ID]; !ok {
		return sql.ErrNoRows
	}
	ws.UpdatedAt = time.Now()
	f.worksheets[ws.ID] = ws
	return nil
}

func (f *fakeStore) DeleteWorksheet(_ context.Context, worksheetID string) error {
	delete(f.worksheets, worksheetID)
	return nil
}

type fakeHistory struct {
	heads   map[string]history.Snapshot
	commits map[string][]store.RevisionInfo
	byHash  map[string]history.Snapshot
	seq     int
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{
		heads:   make(map[string]history.Snapshot),
		commits: make(map[string][]store.RevisionInfo),
		byHash:  make(map[string]history.Snapshot),
	}
}

func (f *fakeHistory) EnsureWorksheetRepo(worksheetID string, initial history.Snapshot, author string) error {
	if _, ok := f.heads[worksheetID]; ok {
		return nil
	}
	_, err := f.CommitSnapshot(worksheetID, initial, author, "Create worksheet")
	return err
}

func (f *fakeHistory) CommitSnapshot(worksheetID string, snapshot history.Snapshot, author, message string) (store.RevisionInfo, error) {
	f.seq++
	rev := store.RevisionInfo{
		Hash:    fmt.Sprintf("rev%04d", f.seq),
		Message: message,
		Author:  author,
		When:    time.Now(),
	}
	f.heads[worksheetID] = snapshot
	f.byHash[rev.Hash] = snapshot
	f.commits[worksheetID] = append([]store.RevisionInfo{rev}, f.commits[worksheetID]...)
	return rev, nil
}

func (f *fakeHistory) GetHead(worksheetID string) (history.Snapshot, store.RevisionInfo, error) {
	head, ok := f.heads[worksheetID]
	if !ok {
		return history.Snapshot{}, store.RevisionInfo{}, errors.New("no repo")
	}
	return head, f.commits[worksheetID][0], nil
}

func (f *fakeHistory) GetByHash(_ string, hash string) (history.Snapshot, error) {
	snapshot, ok := f.byHash[hash]
	if !ok {
		return history.Snapshot{}, errors.New("unknown revision")
	}
	return snapshot, nil
}

func (f *fakeHistory) History(worksheetID string, limit int) ([]store.RevisionInfo, error) {
	revisions := f.commits[worksheetID]
	if limit > 0 && len(revisions) > limit {
		revisions = revisions[:limit]
	}
	return revisions, nil
}

func (f *fakeHistory) RemoveWorksheetRepo(worksheetID string) error {
	delete(f.heads, worksheetID)
	delete(f.commits, worksheetID)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:  "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		EditorTTL:  24 * time.Hour,
		CORSOrigin: "*",
	}
}

func newTestService() (*Service, *fakeStore, *fakeHistory) {
	data := newFakeStore()
	data.users["usr_1"] = store.User{ID: "usr_1", DisplayName: "Dana", Email: "dana@example.com", Role: "teacher"}
	data.users["usr_2"] = store.User{ID: "usr_2", DisplayName: "Sam", Email: "sam@example.com", Role: "teacher"}
	hist := newFakeHistory()
	return New(testConfig(), data, hist), data, hist
}

func teacherClaims() auth.Claims {
	return auth.Claims{Sub: "usr_1", Name: "Dana", Role: "teacher", JTI: "jti_test", Exp: time.Now().Add(time.Hour).Unix()}
}

func TestSessionLifecycle(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, "usr_1")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if sess.Role != "teacher" || sess.UserName != "Dana" {
		t.Errorf("unexpected session identity: %+v", sess)
	}

	claims, err := svc.SessionFromToken(ctx, sess.Token)
	if err != nil {
		t.Fatalf("SessionFromToken() error = %v", err)
	}
	if claims.Sub != "usr_1" {
		t.Errorf("Sub = %q, want usr_1", claims.Sub)
	}

	t.Run("refresh rotates the token", func(t *testing.T) {
		next, err := svc.RefreshSession(ctx, sess.RefreshToken)
		if err != nil {
			t.Fatalf("RefreshSession() error = %v", err)
		}
		if next.RefreshToken == sess.RefreshToken {
			t.Error("refresh token was not rotated")
		}
		if _, err := svc.RefreshSession(ctx, sess.RefreshToken); err == nil {
			t.Error("old refresh token should be revoked after rotation")
		}
	})

	t.Run("logout revokes the access token", func(t *testing.T) {
		if err := svc.Logout(ctx, claims, ""); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if _, err := svc.SessionFromToken(ctx, sess.Token); err == nil {
			t.Error("token should be rejected after logout")
		}
	})
}

func TestCreateWorksheetDefaults(t *testing.T) {
	svc, _, hist := newTestService()
	ctx := context.Background()

	payload, err := svc.CreateWorksheet(ctx, teacherClaims(), CreateWorksheetInput{})
	if err != nil {
		t.Fatalf("CreateWorksheet() error = %v", err)
	}
	if payload.Title != "Untitled worksheet" {
		t.Errorf("Title = %q", payload.Title)
	}
	if payload.LayoutMode != "single" {
		t.Errorf("LayoutMode = %q, want single", payload.LayoutMode)
	}
	if payload.GlobalFontSize != 14 {
		t.Errorf("GlobalFontSize = %d, want 14", payload.GlobalFontSize)
	}
	if string(payload.Blocks) != "[]" {
		t.Errorf("Blocks = %s, want []", payload.Blocks)
	}
	if _, ok := hist.heads[payload.ID]; !ok {
		t.Error("history repo was not initialized")
	}
}

func TestWorksheetOwnership(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	payload, err := svc.CreateWorksheet(ctx, teacherClaims(), CreateWorksheetInput{Title: "Mine"})
	if err != nil {
		t.Fatalf("CreateWorksheet() error = %v", err)
	}

	other := auth.Claims{Sub: "usr_2", Name: "Sam", Role: "teacher", JTI: "jti_2", Exp: time.Now().Add(time.Hour).Unix()}
	_, err = svc.GetWorksheet(ctx, other, payload.ID)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Errorf("expected FORBIDDEN for another user's worksheet, got %v", err)
	}

	t.Run("admin bypasses ownership", func(t *testing.T) {
		admin := auth.Claims{Sub: "usr_2", Name: "Sam", Role: "admin", JTI: "jti_3", Exp: time.Now().Add(time.Hour).Unix()}
		if _, err := svc.GetWorksheet(ctx, admin, payload.ID); err != nil {
			t.Errorf("admin read failed: %v", err)
		}
	})

	t.Run("students cannot write", func(t *testing.T) {
		student := auth.Claims{Sub: "usr_1", Name: "Dana", Role: "student", JTI: "jti_4", Exp: time.Now().Add(time.Hour).Unix()}
		_, err := svc.CreateWorksheet(ctx, student, CreateWorksheetInput{})
		if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
			t.Errorf("expected FORBIDDEN for student write, got %v", err)
		}
	})
}

func TestDispatchActionLifecycle(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	claims := teacherClaims()

	payload, err := svc.CreateWorksheet(ctx, claims, CreateWorksheetInput{Title: "Quiz"})
	if err != nil {
		t.Fatalf("CreateWorksheet() error = %v", err)
	}

	added, err := svc.DispatchAction(ctx, claims, payload.ID, document.Action{
		Type:      document.ActionAddBlock,
		BlockType: block.TypeHeading,
	})
	if err != nil {
		t.Fatalf("DispatchAction(add) error = %v", err)
	}
	if !added.Changed || added.NewBlockID == "" {
		t.Fatalf("add-block result = %+v", added)
	}

	if err := svc.ReportHeights(ctx, claims, payload.ID, layout.HeightMap{added.NewBlockID: 240}); err != nil {
		t.Fatalf("ReportHeights() error = %v", err)
	}

	t.Run("delete drops measurement and selection", func(t *testing.T) {
		if _, err := svc.SelectionEvent(ctx, claims, payload.ID, SelectionInput{
			Event:  "click",
			Target: layout.FocusTarget{BlockID: added.NewBlockID},
		}); err != nil {
			t.Fatalf("SelectionEvent() error = %v", err)
		}

		deleted, err := svc.DispatchAction(ctx, claims, payload.ID, document.Action{
			Type:    document.ActionDelete,
			BlockID: added.NewBlockID,
		})
		if err != nil {
			t.Fatalf("DispatchAction(delete) error = %v", err)
		}
		if deleted.DeletedBlockID != added.NewBlockID {
			t.Errorf("DeletedBlockID = %q", deleted.DeletedBlockID)
		}

		es := svc.editorFor(ctx, payload.ID, claims.Sub)
		if _, ok := es.recorder.Snapshot()[added.NewBlockID]; ok {
			t.Error("deleted block still has a measurement")
		}
		if es.machine.BlockID() != "" {
			t.Error("deleted block is still selected")
		}
	})

	t.Run("unknown action is rejected", func(t *testing.T) {
		_, err := svc.DispatchAction(ctx, claims, payload.ID, document.Action{Type: "explode"})
		var domainErr *DomainError
		if !errors.As(err, &domainErr) || domainErr.Code != "INVALID_ACTION" {
			t.Errorf("expected INVALID_ACTION, got %v", err)
		}
	})
}

func TestUpdateSettingsCollapsesHalfWidths(t *testing.T) {
	svc, data, _ := newTestService()
	ctx := context.Background()
	claims := teacherClaims()

	payload, err := svc.CreateWorksheet(ctx, claims, CreateWorksheetInput{Title: "Split", LayoutMode: "blocks"})
	if err != nil {
		t.Fatalf("CreateWorksheet() error = %v", err)
	}

	left := block.New(block.TypeParagraph)
	left.Width = block.WidthHalf
	left.WidthPercent = 60
	right := block.New(block.TypeParagraph)
	right.Width = block.WidthHalf
	encoded, err := document.EncodeBlocks([]block.Block{left, right})
	if err != nil {
		t.Fatalf("EncodeBlocks() error = %v", err)
	}
	ws := data.worksheets[payload.ID]
	ws.Blocks = encoded
	data.worksheets[payload.ID] = ws

	mode := "single"
	updated, err := svc.UpdateWorksheetSettings(ctx, claims, payload.ID, UpdateWorksheetInput{LayoutMode: &mode})
	if err != nil {
		t.Fatalf("UpdateWorksheetSettings() error = %v", err)
	}
	if updated.LayoutMode != "single" {
		t.Errorf("LayoutMode = %q", updated.LayoutMode)
	}
	if len(updated.LayoutWarnings) != 0 {
		t.Errorf("expected no layout warnings after collapse, got %v", updated.LayoutWarnings)
	}

	blocks, err := document.DecodeBlocks(updated.Blocks)
	if err != nil {
		t.Fatalf("DecodeBlocks() error = %v", err)
	}
	for _, b := range blocks {
		if b.Width != block.WidthFull || b.WidthPercent != 0 {
			t.Errorf("block %s not collapsed: width=%s percent=%d", b.ID, b.Width, b.WidthPercent)
		}
	}
}

func TestPagesUsesReportedHeights(t *testing.T) {
	svc, data, _ := newTestService()
	ctx := context.Background()
	claims := teacherClaims()

	payload, err := svc.CreateWorksheet(ctx, claims, CreateWorksheetInput{Title: "Pages", LayoutMode: "blocks"})
	if err != nil {
		t.Fatalf("CreateWorksheet() error = %v", err)
	}

	quiz := block.New(block.TypeMultipleChoice)
	left := block.New(block.TypeParagraph)
	left.Width = block.WidthHalf
	left.WidthPercent = 70
	right := block.New(block.TypeParagraph)
	right.Width = block.WidthHalf
	chrome := block.New(block.TypeHeaderFooter)
	encoded, err := document.EncodeBlocks([]block.Block{quiz, left, right, chrome})
	if err != nil {
		t.Fatalf("EncodeBlocks() error = %v", err)
	}
	ws := data.worksheets[payload.ID]
	ws.Blocks = encoded
	data.worksheets[payload.ID] = ws

	if err := svc.ReportHeights(ctx, claims, payload.ID, layout.HeightMap{
		quiz.ID: 900,
		left.ID: 300,
	}); err != nil {
		t.Fatalf("ReportHeights() error = %v", err)
	}

	pages, err := svc.Pages(ctx, claims, payload.ID)
	if err != nil {
		t.Fatalf("Pages() error = %v", err)
	}
	if pages.PageCount != 2 {
		t.Fatalf("PageCount = %d, want 2", pages.PageCount)
	}
	if pages.ActivityNumbers[quiz.ID] != 1 {
		t.Errorf("ActivityNumbers[%s] = %d, want 1", quiz.ID, pages.ActivityNumbers[quiz.ID])
	}

	pair := pages.Pages[1].Rows[0]
	if !pair.Pair {
		t.Fatal("expected second page to start with the half pair")
	}
	if pair.SplitLeft != 70 || pair.SplitRight != 30 {
		t.Errorf("split = %d/%d, want 70/30", pair.SplitLeft, pair.SplitRight)
	}

	for _, page := range pages.Pages {
		for _, row := range page.Rows {
			for _, id := range row.BlockIDs {
				if id == chrome.ID {
					t.Error("header-footer block must not paginate")
				}
			}
		}
	}
}

func TestCommitSplitSnaps(t *testing.T) {
	svc, data, _ := newTestService()
	ctx := context.Background()
	claims := teacherClaims()

	payload, _ := svc.CreateWorksheet(ctx, claims, CreateWorksheetInput{Title: "Snap", LayoutMode: "blocks"})
	left := block.New(block.TypeParagraph)
	left.Width = block.WidthHalf
	left.WidthPercent = 60
	encoded, _ := document.EncodeBlocks([]block.Block{left})
	ws := data.worksheets[payload.ID]
	ws.Blocks = encoded
	data.worksheets[payload.ID] = ws

	result, err := svc.CommitSplit(ctx, claims, payload.ID, SplitCommitInput{BlockID: left.ID, Percent: 52})
	if err != nil {
		t.Fatalf("CommitSplit() error = %v", err)
	}
	blocks, _ := document.DecodeBlocks(result.Worksheet.Blocks)
	if blocks[0].WidthPercent != 50 {
		t.Errorf("WidthPercent = %d, want 50 (snapped)", blocks[0].WidthPercent)
	}
}

func TestCommitMargin(t *testing.T) {
	svc, data, _ := newTestService()
	ctx := context.Background()
	claims := teacherClaims()

	payload, _ := svc.CreateWorksheet(ctx, claims, CreateWorksheetInput{Title: "Drag"})
	para := block.New(block.TypeParagraph)
	spacer := block.New(block.TypeSpacer)
	spacer.Content = block.SpacerContent{Height: 100, Pattern: "dotted"}
	encoded, _ := document.EncodeBlocks([]block.Block{para, spacer})
	ws := data.worksheets[payload.ID]
	ws.Blocks = encoded
	data.worksheets[payload.ID] = ws

	t.Run("block margin clamps to the margin range", func(t *testing.T) {
		result, err := svc.CommitMargin(ctx, claims, payload.ID, MarginCommitInput{BlockID: para.ID, Value: 900})
		if err != nil {
			t.Fatalf("CommitMargin() error = %v", err)
		}
		blocks, _ := document.DecodeBlocks(result.Worksheet.Blocks)
		if blocks[0].MarginBottom != layout.MaxBlockMargin {
			t.Errorf("MarginBottom = %d, want %d", blocks[0].MarginBottom, layout.MaxBlockMargin)
		}
	})

	t.Run("spacer drag resizes the spacer content", func(t *testing.T) {
		result, err := svc.CommitMargin(ctx, claims, payload.ID, MarginCommitInput{BlockID: spacer.ID, Value: 5})
		if err != nil {
			t.Fatalf("CommitMargin() error = %v", err)
		}
		blocks, _ := document.DecodeBlocks(result.Worksheet.Blocks)
		content, ok := blocks[1].Content.(block.SpacerContent)
		if !ok {
			t.Fatalf("spacer content type = %T", blocks[1].Content)
		}
		if content.Height != block.MinSpacerHeight {
			t.Errorf("Height = %d, want %d (clamped)", content.Height, block.MinSpacerHeight)
		}
		if content.Pattern != "dotted" {
			t.Errorf("Pattern = %q, drag must not reset the pattern", content.Pattern)
		}
		if blocks[1].MarginBottom != 0 {
			t.Error("spacer drag must not touch the bottom margin")
		}
	})
}

func TestSelectionEvents(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	claims := teacherClaims()

	payload, _ := svc.CreateWorksheet(ctx, claims, CreateWorksheetInput{Title: "Select"})

	state, err := svc.SelectionEvent(ctx, claims, payload.ID, SelectionInput{
		Event:  "click",
		Target: layout.FocusTarget{BlockID: "blk_1"},
	})
	if err != nil {
		t.Fatalf("SelectionEvent(click) error = %v", err)
	}
	if state.State != layout.StateSelected || state.BlockID != "blk_1" {
		t.Errorf("after click: %+v", state)
	}

	state, _ = svc.SelectionEvent(ctx, claims, payload.ID, SelectionInput{
		Event:  "double-click",
		Target: layout.FocusTarget{BlockID: "blk_1"},
	})
	if state.State != layout.StateEditing {
		t.Errorf("after double-click: %+v", state)
	}

	state, _ = svc.SelectionEvent(ctx, claims, payload.ID, SelectionInput{Event: "escape"})
	if state.State != layout.StateSelected {
		t.Errorf("escape should leave edit mode but keep selection: %+v", state)
	}

	t.Run("click on toolbar keeps the selection", func(t *testing.T) {
		state, _ := svc.SelectionEvent(ctx, claims, payload.ID, SelectionInput{
			Event:  "click-outside",
			Target: layout.FocusTarget{InsideToolbar: true},
		})
		if state.State != layout.StateSelected {
			t.Errorf("toolbar click must not deselect: %+v", state)
		}
	})

	state, _ = svc.SelectionEvent(ctx, claims, payload.ID, SelectionInput{Event: "click-outside"})
	if state.State != layout.StateIdle || state.BlockID != "" {
		t.Errorf("after click-outside: %+v", state)
	}

	t.Run("unknown event is rejected", func(t *testing.T) {
		_, err := svc.SelectionEvent(ctx, claims, payload.ID, SelectionInput{Event: "hover"})
		var domainErr *DomainError
		if !errors.As(err, &domainErr) || domainErr.Code != "INVALID_EVENT" {
			t.Errorf("expected INVALID_EVENT, got %v", err)
		}
	})
}

func TestRestoreRevision(t *testing.T) {
	svc, data, hist := newTestService()
	ctx := context.Background()
	claims := teacherClaims()

	payload, err := svc.CreateWorksheet(ctx, claims, CreateWorksheetInput{Title: "Before"})
	if err != nil {
		t.Fatalf("CreateWorksheet() error = %v", err)
	}

	title := "After"
	if _, err := svc.UpdateWorksheetSettings(ctx, claims, payload.ID, UpdateWorksheetInput{Title: &title}); err != nil {
		t.Fatalf("UpdateWorksheetSettings() error = %v", err)
	}

	revisions, err := svc.ListRevisions(ctx, claims, payload.ID, 0)
	if err != nil {
		t.Fatalf("ListRevisions() error = %v", err)
	}
	if len(revisions) != 2 {
		t.Fatalf("revisions = %d, want 2", len(revisions))
	}

	oldest := revisions[len(revisions)-1]
	restored, err := svc.RestoreRevision(ctx, claims, payload.ID, oldest.Hash)
	if err != nil {
		t.Fatalf("RestoreRevision() error = %v", err)
	}
	if restored.Title != "Before" {
		t.Errorf("Title = %q, want Before", restored.Title)
	}
	if data.worksheets[payload.ID].Title != "Before" {
		t.Error("restore did not persist")
	}
	if len(hist.commits[payload.ID]) != 3 {
		t.Errorf("restore must commit on top of the log, got %d commits", len(hist.commits[payload.ID]))
	}
}

func TestDeleteWorksheetCleansUp(t *testing.T) {
	svc, data, hist := newTestService()
	ctx := context.Background()
	claims := teacherClaims()

	payload, _ := svc.CreateWorksheet(ctx, claims, CreateWorksheetInput{Title: "Gone"})
	if err := svc.DeleteWorksheet(ctx, claims, payload.ID); err != nil {
		t.Fatalf("DeleteWorksheet() error = %v", err)
	}
	if _, ok := data.worksheets[payload.ID]; ok {
		t.Error("worksheet still stored")
	}
	if _, ok := hist.heads[payload.ID]; ok {
		t.Error("history repo still present")
	}
	if _, err := svc.GetWorksheet(ctx, claims, payload.ID); err == nil {
		t.Error("expected NOT_FOUND after delete")
	}
}

func TestSettingsCommitOnlyOnChange(t *testing.T) {
	svc, _, hist := newTestService()
	ctx := context.Background()
	claims := teacherClaims()

	payload, _ := svc.CreateWorksheet(ctx, claims, CreateWorksheetInput{Title: "Same"})
	before := len(hist.commits[payload.ID])

	title := "Same"
	if _, err := svc.UpdateWorksheetSettings(ctx, claims, payload.ID, UpdateWorksheetInput{Title: &title}); err != nil {
		t.Fatalf("UpdateWorksheetSettings() error = %v", err)
	}
	if got := len(hist.commits[payload.ID]); got != before {
		t.Errorf("no-op settings update created a revision: %d -> %d", before, got)
	}
}

func TestPayloadLayoutWarnings(t *testing.T) {
	half := block.New(block.TypeParagraph)
	half.Width = block.WidthHalf
	encoded, _ := document.EncodeBlocks([]block.Block{half})

	payload := payloadOf(store.Worksheet{
		ID:         "ws_1",
		Title:      "Warn",
		LayoutMode: "single",
		Blocks:     json.RawMessage(encoded),
	})
	if len(payload.LayoutWarnings) != 1 || payload.LayoutWarnings[0] != half.ID {
		t.Errorf("LayoutWarnings = %v, want [%s]", payload.LayoutWarnings, half.ID)
	}
}
