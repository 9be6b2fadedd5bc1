package resref

import "testing"

func TestIdentifyMultiDotName(t *testing.T) {
	id, err := Identify("Foo.BAR.uti")
	if err != nil {
		t.Fatalf("Identify() failed: %v", err)
	}
	if id.Name != "Foo.BAR" {
		t.Errorf("Name = %q, want %q", id.Name, "Foo.BAR")
	}
	if id.Type.Extension != "uti" {
		t.Errorf("Extension = %q, want %q", id.Type.Extension, "uti")
	}
	if got, want := id.String(), "foo.bar.uti"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestIdentifyUnknownExtension(t *testing.T) {
	id, err := Identify("readme.zzz")
	if err != nil {
		t.Fatalf("Identify() failed: %v", err)
	}
	if id.Name != "readme" {
		t.Errorf("Name = %q, want %q", id.Name, "readme")
	}
	if id.Type.Extension != "zzz" {
		t.Errorf("Extension = %q, want %q", id.Type.Extension, "zzz")
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []string{"player.utc", "Foo.BAR.uti", "module.ifo", "a.b.c.nss"}
	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			id, err := Identify(tt)
			if err != nil {
				t.Fatalf("Identify(%q) failed: %v", tt, err)
			}
			again, err := Identify(id.String())
			if err != nil {
				t.Fatalf("Identify(%q) failed: %v", id.String(), err)
			}
			if !id.Equal(again) {
				t.Errorf("round-trip mismatch: %+v != %+v", id, again)
			}
		})
	}
}

func TestValidateStrictLength(t *testing.T) {
	id16 := Identity{Name: "1234567890123456", Type: Invalid}
	if _, err := Validate(id16, true); err != nil {
		t.Errorf("16-char name rejected in strict mode: %v", err)
	}

	id17 := Identity{Name: "12345678901234567", Type: Invalid}
	if _, err := Validate(id17, true); err != ErrNameTooLong {
		t.Errorf("Validate(17-char, strict) = %v, want ErrNameTooLong", err)
	}

	loose, err := Validate(id17, false)
	if err != nil {
		t.Fatalf("Validate(17-char, loose) failed: %v", err)
	}
	if len(loose.Name) != MaxNameLength {
		t.Errorf("loose validation did not truncate: %q", loose.Name)
	}
}

func TestValidateWhitespace(t *testing.T) {
	id := Identity{Name: " player", Type: Invalid}
	if _, err := Validate(id, true); err != ErrNameWhitespace {
		t.Errorf("Validate() = %v, want ErrNameWhitespace", err)
	}
}
