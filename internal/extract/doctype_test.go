package extract

import "testing"

func TestDocTypeFromHeader(t *testing.T) {
	cases := []struct {
		text      string
		wantLabel string
		wantTitle string
	}{
		{"POGODBA O ZAPOSLITVI\n\nmed delodajalcem ...", "contract", "pogodba o zaposlitvi"},
		{"Račun št. 2024-117\nDatum: 5.9.2024", "invoice", "račun št. 2024-117"},
		{"PREDRAČUN št. 10\n", "offer", "predračun št. 10"},
		{"Naročilnica 44/2024\n", "purchase-order", "naročilnica 442024"},
		{"Ponudba za izvedbo del\n", "offer", "ponudba za izvedbo del"},
		{"Dobavnica\n", "delivery-note", "dobavnica"},
		{"SKLEP o imenovanju\n", "decision", "sklep o imenovanju"},
		{"ODLOČBA\n", "resolution", "odločba"},
		{"Potrdilo o plačilu\n", "confirmation", "potrdilo o plačilu"},
		{"Obvestilo strankam\n", "notice", "obvestilo strankam"},
		{"IZJAVA o skladnosti\n", "declaration", "izjava o skladnosti"},
		{"Invoice No. 332\n", "invoice", "invoice no. 332"},
	}
	for _, c := range cases {
		label, title := DocType(c.text)
		if label != c.wantLabel || title != c.wantTitle {
			t.Fatalf("DocType(%q) = (%q, %q), want (%q, %q)", c.text, label, title, c.wantLabel, c.wantTitle)
		}
	}
}

func TestDocTypePriorityOrder(t *testing.T) {
	// Both keywords in the header: the earlier label in the fixed order wins.
	label, _ := DocType("Pogodba o dobavi\nRačun priložen\n")
	if label != "contract" {
		t.Fatalf("got %q, want contract", label)
	}
}

func TestDocTypeDeepMatchLosesTitle(t *testing.T) {
	// Keyword appears after the first 20 non-empty lines.
	text := ""
	for i := 0; i < 25; i++ {
		text += "vrstica brez pomena\n"
	}
	text += "priloga: pogodba o sodelovanju\n"
	label, title := DocType(text)
	if label != "contract" {
		t.Fatalf("label = %q, want contract", label)
	}
	if title != UnknownTitle {
		t.Fatalf("title = %q, want %q", title, UnknownTitle)
	}
}

func TestDocTypeUnknown(t *testing.T) {
	label, title := DocType("nekaj povsem drugega\nbrez znanih besed\n")
	if label != UnknownType || title != UnknownTitle {
		t.Fatalf("got (%q, %q), want (%q, %q)", label, title, UnknownType, UnknownTitle)
	}
}

func TestDocTypeDiacriticsLost(t *testing.T) {
	// OCR often reads č as c; the classifier still resolves.
	label, _ := DocType("RACUN st. 5\n")
	if label != "invoice" {
		t.Fatalf("got %q, want invoice", label)
	}
}
