// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jeranaias/parley-tui/internal/model"
)

func openTestStore(t *testing.T) *TranscriptStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "transcripts.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoadTranscript(t *testing.T) {
	store := openTestStore(t)

	user := model.NewUserMessage("what is the capital of France?")
	assistant := model.NewAssistantMessage()
	assistant.AppendToken("Paris.")
	assistant.FinalizeStream()

	if err := store.SaveTranscript("c1", []*model.ChatMessage{user, assistant}); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}

	loaded, err := store.LoadTranscript("c1")
	if err != nil {
		t.Fatalf("LoadTranscript failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(loaded))
	}
	if loaded[0].Role != model.RoleUser || loaded[0].Content != "what is the capital of France?" {
		t.Errorf("unexpected first message: %+v", loaded[0])
	}
	if loaded[1].Role != model.RoleAssistant || loaded[1].Content != "Paris." {
		t.Errorf("unexpected second message: %+v", loaded[1])
	}
}

func TestSaveTranscript_ReplacesExisting(t *testing.T) {
	store := openTestStore(t)

	first := []*model.ChatMessage{model.NewUserMessage("one")}
	if err := store.SaveTranscript("c1", first); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	second := []*model.ChatMessage{
		model.NewUserMessage("one"),
		model.NewUserMessage("two"),
	}
	if err := store.SaveTranscript("c1", second); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	loaded, err := store.LoadTranscript("c1")
	if err != nil {
		t.Fatalf("LoadTranscript failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("expected replaced transcript with 2 messages, got %d", len(loaded))
	}
}

func TestLoadTranscript_NotFound(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.LoadTranscript("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetTitleAndList(t *testing.T) {
	store := openTestStore(t)

	if err := store.SaveTranscript("c1", []*model.ChatMessage{model.NewUserMessage("hi")}); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}
	if err := store.SetTitle("c1", "Greetings"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(list))
	}
	if list[0].Title != "Greetings" {
		t.Errorf("unexpected title: %q", list[0].Title)
	}
	if list[0].MessageCount != 1 {
		t.Errorf("unexpected message count: %d", list[0].MessageCount)
	}
}

func TestSetTitle_BeforeFirstSave(t *testing.T) {
	store := openTestStore(t)

	if err := store.SetTitle("c9", "Early title"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Early title" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)

	if err := store.SaveTranscript("c1", []*model.ChatMessage{model.NewUserMessage("bye")}); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}
	if err := store.Delete("c1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.LoadTranscript("c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete("c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for second delete, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	store := openTestStore(t)

	if err := store.SaveTranscript("c1", []*model.ChatMessage{model.NewUserMessage("tell me about giraffes")}); err != nil {
		t.Fatalf("save c1 failed: %v", err)
	}
	if err := store.SaveTranscript("c2", []*model.ChatMessage{model.NewUserMessage("weather tomorrow")}); err != nil {
		t.Fatalf("save c2 failed: %v", err)
	}
	if err := store.SetTitle("c2", "Weather"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}

	byContent, err := store.Search("giraffes")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(byContent) != 1 || byContent[0].ID != "c1" {
		t.Errorf("content search returned %+v", byContent)
	}

	byTitle, err := store.Search("Weather")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(byTitle) != 1 || byTitle[0].ID != "c2" {
		t.Errorf("title search returned %+v", byTitle)
	}
}

func TestOpen_ReopensExistingDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcripts.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.SaveTranscript("c1", []*model.ChatMessage{model.NewUserMessage("persist me")}); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.LoadTranscript("c1")
	if err != nil {
		t.Fatalf("LoadTranscript after reopen failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Content != "persist me" {
		t.Errorf("unexpected transcript after reopen: %+v", loaded)
	}
}
