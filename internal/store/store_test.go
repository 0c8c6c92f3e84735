package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func mockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertRelation_ConflictUpdatesExistingEdge(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO memo_relations`)).
		WithArgs("m1", "m2", "attention, scaling", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.UpsertRelation(context.Background(), "m1", "m2", "attention, scaling", 2); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	expectationsMet(t, mock)
}

func TestDeleteMemoRelations_RemovesBothDirections(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM memo_relations WHERE memo_id=$1 OR related_memo_id=$1`)).
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := s.DeleteMemoRelations(context.Background(), "m1"); err != nil {
		t.Fatalf("delete relations: %v", err)
	}
	expectationsMet(t, mock)
}

func TestGetRelated_OrdersByScoreThenRecency(t *testing.T) {
	s, mock := mockStore(t)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"related_memo_id", "paper_id", "title", "content", "common_terms", "score", "created_at"}).
		AddRow("m2", "p1", "Scaling Laws", "notes on scaling", "scaling", 3, now).
		AddRow("m3", "p2", "Attention", "notes on attention", "attention", 1, now)
	mock.ExpectQuery(`ORDER BY mr\.score DESC, mr\.created_at DESC`).
		WithArgs("m1", 10).
		WillReturnRows(rows)

	got, err := s.GetRelated(context.Background(), "m1", 0)
	if err != nil {
		t.Fatalf("get related: %v", err)
	}
	if len(got) != 2 || got[0].RelatedMemoID != "m2" || got[0].Score != 3 {
		t.Fatalf("unexpected result %+v", got)
	}
	expectationsMet(t, mock)
}

func TestSubstringMatches_PicksContainingField(t *testing.T) {
	s, mock := mockStore(t)
	rows := sqlmock.NewRows([]string{"id", "title", "authors"}).
		AddRow("p1", "Unrelated Title", "Yoshua Bengio")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, title, authors FROM papers WHERE lower(title) LIKE '%' || lower($1) || '%' OR lower(authors) LIKE '%' || lower($1) || '%' ORDER BY created_at LIMIT $2`)).
		WithArgs("bengio", 50).
		WillReturnRows(rows)

	got, err := s.SubstringMatches(context.Background(), KindPaper, []string{"title", "authors"}, "bengio", 50)
	if err != nil {
		t.Fatalf("substring matches: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
	if got[0].Field != "authors" || got[0].Text != "Yoshua Bengio" {
		t.Fatalf("expected authors field picked, got %+v", got[0])
	}
	expectationsMet(t, mock)
}

func TestSubstringMatches_RejectsUnknownField(t *testing.T) {
	s, _ := mockStore(t)
	if _, err := s.SubstringMatches(context.Background(), KindMemo, []string{"password_hash"}, "x", 10); err == nil {
		t.Fatal("expected error for non-whitelisted field")
	}
}

func TestSubstringCount(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM memos WHERE lower(content) LIKE`)).
		WithArgs("深層学習").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.SubstringCount(context.Background(), KindMemo, []string{"content"}, "深層学習")
	if err != nil {
		t.Fatalf("substring count: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7, got %d", n)
	}
	expectationsMet(t, mock)
}

func TestUpdateMemo_NoRowIsNotFound(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectExec(`UPDATE memos SET`).
		WithArgs("gone", "new content", 3, "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateMemo(context.Background(), "gone", "new content", 3, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestSaveSearchHistory(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO search_history (query, scope, result_count) VALUES ($1,$2,$3)`)).
		WithArgs("attention", "all", 12).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.SaveSearchHistory(context.Background(), "attention", "all", 12); err != nil {
		t.Fatalf("save history: %v", err)
	}
	expectationsMet(t, mock)
}

func TestSearchHistory_DefaultsLimit(t *testing.T) {
	s, mock := mockStore(t)
	rows := sqlmock.NewRows([]string{"query", "scope", "result_count", "searched_at"}).
		AddRow("attention", "all", 12, time.Now())
	mock.ExpectQuery(`FROM search_history`).
		WithArgs(10).
		WillReturnRows(rows)

	got, err := s.SearchHistory(context.Background(), 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 1 || got[0].Query != "attention" || got[0].ResultCount != 12 {
		t.Fatalf("unexpected history %+v", got)
	}
	expectationsMet(t, mock)
}

func TestClearSearchHistory_ReportsDeletedCount(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM search_history`)).
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := s.ClearSearchHistory(context.Background())
	if err != nil {
		t.Fatalf("clear history: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 deleted, got %d", n)
	}
	expectationsMet(t, mock)
}

func TestChildDocumentIDs_CollectsAllKinds(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM memos WHERE paper_id=$1`)).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("m1").AddRow("m2"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM chapters WHERE paper_id=$1`)).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM figures WHERE paper_id=$1`)).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	memos, chapters, figures, err := s.ChildDocumentIDs(context.Background(), "p1")
	if err != nil {
		t.Fatalf("child ids: %v", err)
	}
	if len(memos) != 2 || len(chapters) != 1 || len(figures) != 0 {
		t.Fatalf("unexpected ids %v %v %v", memos, chapters, figures)
	}
	expectationsMet(t, mock)
}
