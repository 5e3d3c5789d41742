package glossary

import "testing"

func TestScanTextsFindsRepeatedName(t *testing.T) {
	s := NewScanner()
	texts := []string{
		"Yamamoto presented the quarterly roadmap.",
		"According to Yamamoto, shipping slips to Q3.",
		"The team agreed with Yamamoto on next steps.",
	}
	entities := s.ScanTexts(texts)
	found := false
	for _, e := range entities {
		if e.Text == "Yamamoto" {
			found = true
			if e.Count != 3 {
				t.Errorf("expected count 3, got %d", e.Count)
			}
		}
	}
	if !found {
		t.Fatal("expected Yamamoto to be detected")
	}
}

func TestScanTextsSkipsStopWords(t *testing.T) {
	s := NewScanner()
	entities := s.ScanTexts([]string{"The Quarterly Review starts Monday."})
	for _, e := range entities {
		if e.Text == "The" {
			t.Errorf("stop word %q should not be an entity", e.Text)
		}
	}
}

func TestScanTextsDetectsTitle(t *testing.T) {
	s := NewScanner()
	entities := s.ScanTexts([]string{"Director Tanaka will open the session.", "Director Tanaka closes with Q&A."})
	var sawTitle bool
	for _, e := range entities {
		if e.Type == EntityTitle {
			sawTitle = true
		}
	}
	if !sawTitle {
		t.Fatal("expected a Title entity to be detected")
	}
}

func TestReconcileFoldsNearDuplicates(t *testing.T) {
	existing := map[string]string{"Yamamoto": "Yamamoto"}
	entities := []Entity{{Text: "Yamamotо", Confidence: 0.9, Count: 2}} // visually similar, but the last rune is Cyrillic
	merged := Reconcile(existing, entities, 2)
	if len(merged) != 1 {
		t.Fatalf("expected near-duplicate to fold into existing entry, got %d entries: %v", len(merged), merged)
	}
}

func TestReconcileAddsDistinctEntity(t *testing.T) {
	existing := map[string]string{"Yamamoto": "Yamamoto"}
	entities := []Entity{{Text: "Suzuki", Confidence: 0.9, Count: 2}}
	merged := Reconcile(existing, entities, 2)
	if _, ok := merged["Suzuki"]; !ok {
		t.Fatal("expected distinct entity to be added")
	}
}
