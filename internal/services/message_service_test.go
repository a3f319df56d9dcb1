package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-webhook-ingest/internal/domain"
)

// ---------- test helpers ----------

func newMsgDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:msgsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func storedMessage(t *testing.T, db *gorm.DB, id string) domain.Message {
	t.Helper()
	var m domain.Message
	if err := db.Where("message_id = ?", id).First(&m).Error; err != nil {
		t.Fatalf("load %s: %v", id, err)
	}
	return m
}

func msg(id, from, ts string) domain.Message {
	text := "hello " + id
	return domain.Message{MessageID: id, From: from, To: "+14155550100", TS: ts, Text: &text}
}

// ---------- Insert() ----------

func TestInsert_CreatedThenDuplicate_KeepsOriginalCreatedAt(t *testing.T) {
	db := newMsgDB(t, &domain.Message{})
	s := NewMessageService(db)

	t1 := time.Date(2025, 1, 15, 10, 0, 1, 123456000, time.UTC)
	s.Now = func() time.Time { return t1 }
	created, reason := s.Insert(context.Background(), msg("m1", "+919876543210", "2025-01-15T10:00:00Z"))
	if !created || reason != OutcomeCreated {
		t.Fatalf("first insert = (%v, %q); want (true, created)", created, reason)
	}

	s.Now = func() time.Time { return t1.Add(time.Hour) }
	created, reason = s.Insert(context.Background(), msg("m1", "+919876543210", "2025-01-15T10:00:00Z"))
	if created || reason != OutcomeDuplicate {
		t.Fatalf("second insert = (%v, %q); want (false, duplicate)", created, reason)
	}

	got := storedMessage(t, db, "m1")
	if got.CreatedAt != "2025-01-15T10:00:01.123456Z" {
		t.Fatalf("created_at = %q; want first insert's value", got.CreatedAt)
	}
}

func TestInsert_CreatedAtIsUTCWithZ(t *testing.T) {
	db := newMsgDB(t, &domain.Message{})
	s := NewMessageService(db)
	loc := time.FixedZone("X", 5*3600)
	s.Now = func() time.Time { return time.Date(2025, 3, 1, 5, 0, 0, 0, loc) }

	if ok, _ := s.Insert(context.Background(), msg("tz", "+1", "2025-03-01T00:00:00Z")); !ok {
		t.Fatalf("insert failed")
	}
	got := storedMessage(t, db, "tz")
	if got.CreatedAt != "2025-03-01T00:00:00.000000Z" {
		t.Fatalf("created_at = %q", got.CreatedAt)
	}
}

func TestInsert_StorageErrorBecomesErrorOutcome(t *testing.T) {
	db := newMsgDB(t /* no table */)
	s := NewMessageService(db)

	created, reason := s.Insert(context.Background(), msg("m1", "+1", "2025-01-01T00:00:00Z"))
	if created || !strings.HasPrefix(reason, "error: ") || len(reason) <= len("error: ") {
		t.Fatalf("got (%v, %q); want (false, error: ...)", created, reason)
	}
}

func TestInsert_ConcurrentSameIDCreatesOnce(t *testing.T) {
	db := newMsgDB(t, &domain.Message{})
	s := NewMessageService(db)

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = map[string]int{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, reason := s.Insert(context.Background(), msg("same", "+1", "2025-01-01T00:00:00Z"))
			mu.Lock()
			results[reason]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if results[OutcomeCreated] != 1 || results[OutcomeDuplicate] != n-1 {
		t.Fatalf("outcomes = %v; want 1 created and %d duplicate", results, n-1)
	}
}

// ---------- Query() ----------

func TestQuery_RejectsOutOfRangeBeforeStorage(t *testing.T) {
	// no table: reaching storage would produce a different error
	s := NewMessageService(newMsgDB(t))
	cases := []struct {
		limit, offset int
		want          error
	}{
		{0, 0, ErrInvalidLimit},
		{101, 0, ErrInvalidLimit},
		{10, -1, ErrInvalidOffset},
	}
	for _, tc := range cases {
		_, _, err := s.Query(context.Background(), tc.limit, tc.offset, domain.MessageFilter{})
		if !errors.Is(err, tc.want) {
			t.Fatalf("Query(%d,%d) err = %v; want %v", tc.limit, tc.offset, err, tc.want)
		}
	}
}

func TestQuery_TotalIgnoresPagination(t *testing.T) {
	db := newMsgDB(t, &domain.Message{})
	s := NewMessageService(db)
	ctx := context.Background()

	s.Insert(ctx, msg("b", "+1", "2025-01-02T00:00:00Z"))
	s.Insert(ctx, msg("a", "+1", "2025-01-01T00:00:00Z"))
	s.Insert(ctx, msg("c", "+2", "2025-01-03T00:00:00Z"))

	items, total, err := s.Query(ctx, 1, 0, domain.MessageFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 3 || len(items) != 1 || items[0].MessageID != "a" {
		t.Fatalf("got total=%d items=%+v; want 3 and [a]", total, items)
	}

	items, total, _ = s.Query(ctx, 10, 1, domain.MessageFilter{From: "+1"})
	if total != 2 || len(items) != 1 || items[0].MessageID != "b" {
		t.Fatalf("filtered page: total=%d items=%+v", total, items)
	}

	items, total, err = s.Query(ctx, 10, 50, domain.MessageFilter{})
	if err != nil || total != 3 || items == nil || len(items) != 0 {
		t.Fatalf("offset past end: total=%d items=%v err=%v", total, items, err)
	}
}

func TestQuery_StorageError(t *testing.T) {
	s := NewMessageService(newMsgDB(t))
	if _, _, err := s.Query(context.Background(), 10, 0, domain.MessageFilter{}); err == nil {
		t.Fatalf("expected storage error without table")
	}
}

// ---------- Stats() / Ping() ----------

func TestStatsAndPing(t *testing.T) {
	db := newMsgDB(t, &domain.Message{})
	s := NewMessageService(db)
	ctx := context.Background()

	s.Insert(ctx, msg("1", "+1", "2025-01-01T00:00:00Z"))
	s.Insert(ctx, msg("2", "+1", "2025-01-05T00:00:00Z"))
	s.Insert(ctx, msg("3", "+2", "2025-01-03T00:00:00Z"))

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalMessages != 3 || st.SendersCount != 2 || st.MessagesPerSender[0] != (domain.SenderCount{From: "+1", Count: 2}) {
		t.Fatalf("unexpected stats %+v", st)
	}
	if *st.FirstMessageTS != "2025-01-01T00:00:00Z" || *st.LastMessageTS != "2025-01-05T00:00:00Z" {
		t.Fatalf("unexpected bounds %v %v", *st.FirstMessageTS, *st.LastMessageTS)
	}

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := (&MessageService{}).Ping(ctx); err == nil {
		t.Fatalf("Ping without DB should fail")
	}
}

func TestErrorOutcome(t *testing.T) {
	if got := ErrorOutcome(errors.New("disk full")); got != "error: disk full" {
		t.Fatalf("ErrorOutcome = %q", got)
	}
}
