// Package storagetest provides a conformance suite every storage.Store
// adapter runs from its own tests.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/louisbranch/dualitydice/internal/storage"
	"github.com/louisbranch/dualitydice/internal/storage/card"
)

// Run exercises the storage.Store contract against stores built by open.
// open is called once per subtest and must return an empty store.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Helper()

	t.Run("actors", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if _, err := s.GetActor(ctx, "ghost"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("GetActor(ghost) error = %v, want ErrNotFound", err)
		}
		if err := s.UpsertActor(ctx, storage.Actor{ID: "u1", Name: "Ash", GroupID: "g1"}); err != nil {
			t.Fatalf("UpsertActor() error = %v", err)
		}
		if err := s.UpsertActor(ctx, storage.Actor{ID: "u1", Name: "Ash Vale", GroupID: "g1"}); err != nil {
			t.Fatalf("UpsertActor() update error = %v", err)
		}
		got, err := s.GetActor(ctx, "u1")
		if err != nil {
			t.Fatalf("GetActor() error = %v", err)
		}
		if got.Name != "Ash Vale" || got.GroupID != "g1" {
			t.Fatalf("GetActor() = %+v", got)
		}
		if err := s.UpsertActor(ctx, storage.Actor{ID: " "}); err == nil {
			t.Fatal("UpsertActor() with blank id: expected error")
		}
	})

	t.Run("ints are case-insensitive", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if _, ok, err := s.GetInt(ctx, "u1", "hope"); err != nil || ok {
			t.Fatalf("GetInt(missing) = (ok=%v, err=%v), want (false, nil)", ok, err)
		}
		if err := s.SetInt(ctx, "u1", "Hope", 3); err != nil {
			t.Fatalf("SetInt() error = %v", err)
		}
		if err := s.SetInt(ctx, "u1", "HOPE", 4); err != nil {
			t.Fatalf("SetInt() overwrite error = %v", err)
		}
		v, ok, err := s.GetInt(ctx, "u1", "hope")
		if err != nil || !ok || v != 4 {
			t.Fatalf("GetInt() = (%d, %v, %v), want (4, true, nil)", v, ok, err)
		}
		if err := s.SetInt(ctx, "u2", "hope", 1); err != nil {
			t.Fatalf("SetInt(u2) error = %v", err)
		}
		all, err := s.ListInts(ctx, "u1")
		if err != nil {
			t.Fatalf("ListInts() error = %v", err)
		}
		if len(all) != 1 || all["hope"] != 4 {
			t.Fatalf("ListInts() = %v, want map[hope:4]", all)
		}
	})

	t.Run("strings", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if err := s.SetString(ctx, "u1", "Title", "Ranger"); err != nil {
			t.Fatalf("SetString() error = %v", err)
		}
		v, ok, err := s.GetString(ctx, "u1", "title")
		if err != nil || !ok || v != "Ranger" {
			t.Fatalf("GetString() = (%q, %v, %v)", v, ok, err)
		}
	})

	t.Run("groups", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if _, ok, err := s.GetGroupValue(ctx, "g1", "gm"); err != nil || ok {
			t.Fatalf("GetGroupValue(missing) = (ok=%v, err=%v)", ok, err)
		}
		if err := s.SetGroupValue(ctx, "g1", "gm", "u1"); err != nil {
			t.Fatalf("SetGroupValue() error = %v", err)
		}
		v, ok, err := s.GetGroupValue(ctx, "g1", "GM")
		if err != nil || !ok || v != "u1" {
			t.Fatalf("GetGroupValue() = (%q, %v, %v)", v, ok, err)
		}
		if err := s.DeleteGroupValue(ctx, "g1", "gm"); err != nil {
			t.Fatalf("DeleteGroupValue() error = %v", err)
		}
		if _, ok, _ := s.GetGroupValue(ctx, "g1", "gm"); ok {
			t.Fatal("GetGroupValue() after delete: ok = true")
		}
		if err := s.DeleteGroupValue(ctx, "g1", "gm"); err != nil {
			t.Fatalf("DeleteGroupValue(missing) error = %v", err)
		}
	})

	t.Run("card template", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if err := s.UpsertActor(ctx, storage.Actor{ID: "u1", Name: "Ash"}); err != nil {
			t.Fatalf("UpsertActor() error = %v", err)
		}
		if err := s.SetInt(ctx, "u1", "fear", 5); err != nil {
			t.Fatalf("SetInt() error = %v", err)
		}
		text, err := s.ApplyCardTemplate(ctx, "u1", card.GM)
		if err != nil {
			t.Fatalf("ApplyCardTemplate() error = %v", err)
		}
		if want := "Ash Fear 5/12"; text != want {
			t.Fatalf("ApplyCardTemplate() = %q, want %q", text, want)
		}
		stored, ok, err := s.GetString(ctx, "u1", storage.CardKey)
		if err != nil || !ok || stored != text {
			t.Fatalf("stored card = (%q, %v, %v), want %q", stored, ok, err, text)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		s := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := s.SetInt(ctx, "u1", "hope", 1); err == nil {
			t.Fatal("SetInt() with canceled context: expected error")
		}
	})
}
