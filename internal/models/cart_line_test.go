package models

import (
	"encoding/json"
	"testing"
)

func TestCartLinesScanAcceptsTextAndBytes(t *testing.T) {
	raw := `[{"id":"1","name":"Apple","unit_price":"40.00","image":"a.png","quantity":2}]`
	want := CartLines{{ID: "1", Name: "Apple", UnitPrice: NewMoneyFromInt(40), Image: "a.png", Quantity: 2}}

	var fromText CartLines
	if err := fromText.Scan(raw); err != nil {
		t.Fatalf("scan text failed: %v", err)
	}
	var fromBytes CartLines
	if err := fromBytes.Scan([]byte(raw)); err != nil {
		t.Fatalf("scan bytes failed: %v", err)
	}
	if !fromText.Equal(want) || !fromBytes.Equal(want) {
		t.Fatalf("scan want %+v got text=%+v bytes=%+v", want, fromText, fromBytes)
	}

	var empty CartLines
	if err := empty.Scan(nil); err != nil || len(empty) != 0 {
		t.Fatalf("scan nil want empty got %+v err=%v", empty, err)
	}
}

func TestCartLinesValueNeverNull(t *testing.T) {
	var lines CartLines
	value, err := lines.Value()
	if err != nil {
		t.Fatalf("value failed: %v", err)
	}
	if value != "[]" {
		t.Fatalf("nil lines want [] got %v", value)
	}
}

func TestMoneyAcceptsNumberAndString(t *testing.T) {
	var fromNumber, fromString Money
	if err := json.Unmarshal([]byte(`39.999`), &fromNumber); err != nil {
		t.Fatalf("unmarshal number failed: %v", err)
	}
	if err := json.Unmarshal([]byte(`"40"`), &fromString); err != nil {
		t.Fatalf("unmarshal string failed: %v", err)
	}
	if !fromNumber.Equal(fromString) {
		t.Fatalf("money want equal got %s vs %s", fromNumber, fromString)
	}
	if got := NewMoneyFromInt(40).Times(2).Plus(NewMoneyFromInt(30)).String(); got != "110.00" {
		t.Fatalf("arithmetic want 110.00 got %s", got)
	}
}
