package payee_test

import (
	"testing"

	"github.com/aurafin/aura/internal/payee"
)

func TestDirectory_PhoneticMatch(t *testing.T) {
	t.Parallel()

	d := payee.New([]string{"Rahul", "Priya", "Mom"})

	// "rahool" shares Double Metaphone codes with "Rahul".
	canonical, score, matched := d.Match("rahool")
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "rahool")
	}
	if canonical != "Rahul" {
		t.Errorf("Match(%q): canonical=%q, want %q", "rahool", canonical, "Rahul")
	}
	if score < 0.7 {
		t.Errorf("Match(%q): score=%f, want >= 0.7", "rahool", score)
	}
}

func TestDirectory_ExactNameMatches(t *testing.T) {
	t.Parallel()

	d := payee.New([]string{"Rahul", "Priya", "Mom"})

	canonical, _, matched := d.Match("priya")
	if !matched || canonical != "Priya" {
		t.Fatalf("Match(%q) = (%q, matched=%v), want (%q, true)", "priya", canonical, matched, "Priya")
	}
}

func TestDirectory_NoMatchReturnsInput(t *testing.T) {
	t.Parallel()

	d := payee.New([]string{"Rahul", "Priya"})

	canonical, score, matched := d.Match("electricity board")
	if matched {
		t.Fatalf("Match(%q): matched=true, want false", "electricity board")
	}
	if canonical != "electricity board" {
		t.Errorf("Match(%q): canonical=%q, want input unchanged", "electricity board", canonical)
	}
	if score != 0 {
		t.Errorf("Match(%q): score=%f, want 0", "electricity board", score)
	}
}

func TestDirectory_EmptyDirectory(t *testing.T) {
	t.Parallel()

	d := payee.New(nil)

	canonical, _, matched := d.Match("rahul")
	if matched || canonical != "rahul" {
		t.Fatalf("Match on empty directory = (%q, %v), want input unchanged and false", canonical, matched)
	}
}

func TestDirectory_BlankInput(t *testing.T) {
	t.Parallel()

	d := payee.New([]string{"Rahul"})

	if _, _, matched := d.Match("   "); matched {
		t.Fatal("Match on blank input: matched=true, want false")
	}
}

func TestDirectory_NamesSkipsBlanks(t *testing.T) {
	t.Parallel()

	d := payee.New([]string{"Rahul", "  ", "Priya"})

	names := d.Names()
	if len(names) != 2 {
		t.Fatalf("Names() = %v, want 2 entries", names)
	}
}
