package table

import "testing"

func TestRecordValue(t *testing.T) {
	t.Run("it returns the cell for a present column", func(t *testing.T) {
		r := Record{"name": "alice"}
		if got := r.Value("name"); got != "alice" {
			t.Errorf("Value = %q, want %q", got, "alice")
		}
	})

	t.Run("it returns empty string for an absent column", func(t *testing.T) {
		r := Record{"name": "alice"}
		if got := r.Value("email"); got != "" {
			t.Errorf("Value = %q, want empty", got)
		}
	})
}

func TestTableLen(t *testing.T) {
	t.Run("it returns zero for a nil table", func(t *testing.T) {
		var tbl *Table
		if tbl.Len() != 0 {
			t.Errorf("Len = %d, want 0", tbl.Len())
		}
	})

	t.Run("it counts records", func(t *testing.T) {
		tbl := &Table{Headers: []string{"id"}, Records: []Record{{"id": "1"}, {"id": "2"}}}
		if tbl.Len() != 2 {
			t.Errorf("Len = %d, want 2", tbl.Len())
		}
	})
}

func TestFingerprint(t *testing.T) {
	headers := []string{"id", "name"}

	t.Run("it is equal for records with identical values", func(t *testing.T) {
		a := Record{"id": "1", "name": "a"}
		b := Record{"id": "1", "name": "a"}
		if Fingerprint(headers, a) != Fingerprint(headers, b) {
			t.Error("expected identical records to share a fingerprint")
		}
	})

	t.Run("it differs when any single column differs", func(t *testing.T) {
		base := Record{"id": "1", "name": "a"}
		variants := []Record{
			{"id": "2", "name": "a"},
			{"id": "1", "name": "b"},
			{"id": "1", "name": "a "},
		}
		for _, v := range variants {
			if Fingerprint(headers, base) == Fingerprint(headers, v) {
				t.Errorf("fingerprint of %v collided with %v", v, base)
			}
		}
	})

	t.Run("it does not collide when values contain separator characters", func(t *testing.T) {
		a := Record{"id": "1:+", "name": "a"}
		b := Record{"id": "1", "name": ":+a"}
		if Fingerprint(headers, a) == Fingerprint(headers, b) {
			t.Error("expected shifted separators to produce different fingerprints")
		}
	})

	t.Run("it distinguishes an absent column from an empty one", func(t *testing.T) {
		absent := Record{"id": "1"}
		empty := Record{"id": "1", "name": ""}
		if Fingerprint(headers, absent) == Fingerprint(headers, empty) {
			t.Error("expected absent and empty cells to produce different fingerprints")
		}
	})

	t.Run("it includes keys outside the header set", func(t *testing.T) {
		a := Record{"id": "1", "name": "a", "extra": "x"}
		b := Record{"id": "1", "name": "a", "extra": "y"}
		c := Record{"id": "1", "name": "a"}
		if Fingerprint(headers, a) == Fingerprint(headers, b) {
			t.Error("expected differing extra keys to produce different fingerprints")
		}
		if Fingerprint(headers, a) == Fingerprint(headers, c) {
			t.Error("expected an extra key to change the fingerprint")
		}
	})

	t.Run("it includes extra keys even when header columns are absent", func(t *testing.T) {
		a := Record{"extra": "x"}
		b := Record{"extra": "y"}
		if Fingerprint(headers, a) == Fingerprint(headers, b) {
			t.Error("expected differing extra keys to produce different fingerprints")
		}
	})

	t.Run("it follows header order", func(t *testing.T) {
		r := Record{"id": "1", "name": "a"}
		if Fingerprint([]string{"id", "name"}, r) == Fingerprint([]string{"name", "id"}, r) {
			t.Error("expected header order to affect the encoding")
		}
	})
}
