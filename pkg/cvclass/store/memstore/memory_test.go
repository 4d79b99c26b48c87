package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
	"github.com/cognicore/cvclass/pkg/cvclass/store"
)

func TestPutAndGetSet(t *testing.T) {
	ctx := context.Background()
	s := New()

	rec := store.SetRecord{ID: "01A", CreatedAt: time.Now(), Manifest: []byte(`{"k":1}`)}
	blobs := []store.Blob{
		{Kind: "model", Codec: "json+zstd", Data: []byte{1, 2}},
		{Kind: "selector", Codec: "json+zstd", Data: []byte{3}},
	}
	if err := s.PutSet(ctx, rec, blobs); err != nil {
		t.Fatalf("PutSet: %v", err)
	}

	got, err := s.GetSet(ctx, "01A")
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Manifest) != `{"k":1}` {
		t.Errorf("manifest = %s", got.Manifest)
	}

	// Mutating the caller's slice must not change stored data.
	blobs[0].Data[0] = 9
	stored, err := s.GetBlobs(ctx, "01A")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 || stored[0].Kind != "model" || stored[0].Data[0] != 1 {
		t.Errorf("unexpected blobs %+v", stored)
	}

	if err := s.PutSet(ctx, rec, nil); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("duplicate id: %v", err)
	}
}

func TestLatestAndList(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.LatestID(ctx); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("empty store: %v", err)
	}
	for _, id := range []string{"01B", "01C", "01A"} {
		if err := s.PutSet(ctx, store.SetRecord{ID: id}, nil); err != nil {
			t.Fatal(err)
		}
	}
	latest, err := s.LatestID(ctx)
	if err != nil || latest != "01C" {
		t.Errorf("LatestID = %q, %v", latest, err)
	}
	list, _ := s.ListSets(ctx, 2)
	if len(list) != 2 || list[0].ID != "01C" || list[1].ID != "01B" {
		t.Errorf("ListSets = %+v", list)
	}
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.PutReport(ctx, "nope", []byte("x")); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("report for unknown set: %v", err)
	}
	if err := s.PutSet(ctx, store.SetRecord{ID: "01A"}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetReport(ctx, "01A"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("missing report: %v", err)
	}
	if err := s.PutReport(ctx, "01A", []byte("report")); err != nil {
		t.Fatal(err)
	}
	body, err := s.GetReport(ctx, "01A")
	if err != nil || string(body) != "report" {
		t.Errorf("GetReport = %q, %v", body, err)
	}

	if err := s.DeleteSet(ctx, "01A"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetReport(ctx, "01A"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("report should be deleted with its set: %v", err)
	}
}
