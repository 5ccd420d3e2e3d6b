package extract

import (
	"reflect"
	"testing"
)

func TestPartiesTwoOrgs(t *testing.T) {
	text := "pogodba sklenjena med Alfa d.o.o. in naročnikom Beta d.d. dne 5.9.2024"
	got := Parties(text)
	want := []string{"alfa d.o.o.", "beta d.d."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPartiesSortedAndDeduped(t *testing.T) {
	text := "izvajalec Zeta d.o.o. naroča pri Alfa d.o.o. kar je Zeta d.o.o. potrdila"
	got := Parties(text)
	want := []string{"alfa d.o.o.", "zeta d.o.o."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPartiesCappedAtTwo(t *testing.T) {
	text := "podpisniki: najprej Alfa d.o.o. nato Beta d.d. in nazadnje Cika s.p. vsi skupaj"
	got := Parties(text)
	if len(got) != 2 {
		t.Fatalf("got %d parties %v, want 2", len(got), got)
	}
	if got[0] != "alfa d.o.o." || got[1] != "beta d.d." {
		t.Fatalf("got %v, want first two in sorted order", got)
	}
}

func TestPartiesSpacedSuffix(t *testing.T) {
	got := Parties("izvajalec Gama d. o. o. iz Kranja")
	if len(got) != 1 || got[0] != "gama d. o. o." {
		t.Fatalf("got %v, want [gama d. o. o.]", got)
	}
}

func TestPartiesMultiWordName(t *testing.T) {
	got := Parties("dobavitelj je Prva Gradbena Družba d.o.o. s sedežem v Celju")
	if len(got) != 1 || got[0] != "prva gradbena družba d.o.o." {
		t.Fatalf("got %v, want [prva gradbena družba d.o.o.]", got)
	}
}

func TestPartiesForeignSuffixes(t *testing.T) {
	got := Parties("kupec Omega Ltd. in proizvajalec Steiner GmbH skleneta")
	want := []string{"omega ltd.", "steiner gmbh"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPartiesNone(t *testing.T) {
	if got := Parties("besedilo brez pravnih oseb in brez podjetij"); len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}
