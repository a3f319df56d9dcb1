package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/tbourn/go-webhook-ingest/internal/domain"
)

func TestMessageStats_EmptyTable(t *testing.T) {
	db := newMsgRepoDB(t, &domain.Message{})

	st, err := MessageStats(context.Background(), db)
	if err != nil {
		t.Fatalf("MessageStats: %v", err)
	}
	if st.TotalMessages != 0 || st.SendersCount != 0 {
		t.Fatalf("expected zero counts, got %+v", st)
	}
	if st.MessagesPerSender == nil || len(st.MessagesPerSender) != 0 {
		t.Fatalf("expected empty non-nil sender list, got %v", st.MessagesPerSender)
	}
	if st.FirstMessageTS != nil || st.LastMessageTS != nil {
		t.Fatalf("expected nil first/last ts, got %v %v", st.FirstMessageTS, st.LastMessageTS)
	}
}

func TestMessageStats_CountsTopSendersAndBounds(t *testing.T) {
	db := newMsgRepoDB(t, &domain.Message{})

	// 12 senders: +100 sends 3, +101 and +099 send 2 (tie), the rest 1 each.
	var msgs []domain.Message
	add := func(from string, n int) {
		for i := 0; i < n; i++ {
			msgs = append(msgs, domain.Message{
				MessageID: fmt.Sprintf("%s-%d", from, i),
				From:      from,
				To:        "+2",
				TS:        fmt.Sprintf("2025-02-%02dT00:00:00Z", 1+len(msgs)),
			})
		}
	}
	add("+100", 3)
	add("+101", 2)
	add("+099", 2)
	for i := 0; i < 9; i++ {
		add(fmt.Sprintf("+2%02d", i), 1)
	}
	seed(t, db, msgs...)

	st, err := MessageStats(context.Background(), db)
	if err != nil {
		t.Fatalf("MessageStats: %v", err)
	}
	if st.TotalMessages != int64(len(msgs)) {
		t.Fatalf("total = %d; want %d", st.TotalMessages, len(msgs))
	}
	if st.SendersCount != 12 {
		t.Fatalf("senders = %d; want 12", st.SendersCount)
	}
	if len(st.MessagesPerSender) != TopSenders {
		t.Fatalf("top senders len = %d; want %d", len(st.MessagesPerSender), TopSenders)
	}
	wantHead := []domain.SenderCount{{From: "+100", Count: 3}, {From: "+099", Count: 2}, {From: "+101", Count: 2}, {From: "+200", Count: 1}}
	for i, w := range wantHead {
		if st.MessagesPerSender[i] != w {
			t.Fatalf("sender[%d] = %+v; want %+v", i, st.MessagesPerSender[i], w)
		}
	}
	if last := st.MessagesPerSender[TopSenders-1]; last.From != "+206" {
		t.Fatalf("last listed sender = %+v; want +206", last)
	}
	if st.FirstMessageTS == nil || *st.FirstMessageTS != "2025-02-01T00:00:00Z" {
		t.Fatalf("first ts = %v", st.FirstMessageTS)
	}
	if st.LastMessageTS == nil || *st.LastMessageTS != fmt.Sprintf("2025-02-%02dT00:00:00Z", len(msgs)) {
		t.Fatalf("last ts = %v", st.LastMessageTS)
	}
}

func TestMessageStats_Error_NoTable(t *testing.T) {
	db := newMsgRepoDB(t)
	if _, err := MessageStats(context.Background(), db); err == nil {
		t.Fatalf("expected error without messages table")
	}
}
