package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"rangeswap/internal/model"
)

func sampleEvents() []model.Event {
	return []model.Event{
		{
			EventName: model.EventMint,
			Pool:      "0x9999999999999999999999999999999999999999",
			Data: model.MintEventData{
				Owner:     "0x1111111111111111111111111111111111111111",
				Liquidity: "20000000",
				Amount0:   "99999",
				Amount1:   "1980000000",
			},
		},
		{
			EventName: model.EventSwap,
			Pool:      "0x9999999999999999999999999999999999999999",
			Data: model.SwapEventData{
				Recipient:    "0x3333333333333333333333333333333333333333",
				ZeroForOne:   true,
				AmountIn:     "100000000000000000000",
				AmountOut:    "996990060009101709255958",
				SqrtPriceX96: "7922737261735934252089901697281",
				Liquidity:    "1000000000000000000000000000",
			},
		},
	}
}

func TestJsonlJournalAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	journal := NewJsonlJournal(path)

	events := sampleEvents()
	if err := journal.AppendEvents(events[:1]); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := journal.AppendEvents(events[1:]); err != nil {
		t.Fatalf("second append: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var lines []model.Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event model.Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		lines = append(lines, event)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(lines) != 2 {
		t.Fatalf("line count: %d", len(lines))
	}
	if lines[0].EventName != model.EventMint || lines[1].EventName != model.EventSwap {
		t.Fatalf("event order: %s, %s", lines[0].EventName, lines[1].EventName)
	}

	payload, ok := lines[1].Data.(map[string]interface{})
	if !ok {
		t.Fatalf("swap payload shape: %T", lines[1].Data)
	}
	if payload["amount_out"] != "996990060009101709255958" {
		t.Fatalf("swap amount out: %v", payload["amount_out"])
	}
}

func TestJsonlJournalEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	journal := NewJsonlJournal(path)

	if err := journal.AppendEvents(nil); err != nil {
		t.Fatalf("empty append: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("empty append created the file: %v", err)
	}
}

func TestMemoryJournal(t *testing.T) {
	journal := NewMemoryJournal()
	events := sampleEvents()

	if err := journal.AppendEvents(events); err != nil {
		t.Fatalf("append: %v", err)
	}
	got := journal.Events()
	if len(got) != 2 || got[0].EventName != model.EventMint {
		t.Fatalf("stored events: %+v", got)
	}

	// The returned slice is a copy; appending to it must not leak back.
	_ = append(got, model.Event{EventName: model.EventBurn})
	if len(journal.Events()) != 2 {
		t.Fatalf("journal mutated through the copy")
	}
}
