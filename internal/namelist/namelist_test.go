package namelist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const inputNML = ` &MOM_input_nml
         output_directory = './',
         input_filename = 'r'
         restart_input_dir = 'INPUT/',
         restart_output_dir = 'RESTART/',
         parameter_filename = 'MOM_input',
                              'MOM_override'
/

 &fms_nml
            clock_grain='ROUTINE'
            clock_flags='NONE'
            domains_stack_size = 5000000
            stack_size =0
/

 &ocean_solo_nml
            months = 0
            days   = 1
            date_init = 1, 1, 1, 0, 0, 0,
            hours = 0
            minutes = 0
            seconds = 0
            calendar = 'julian' /
`

func parse(t *testing.T, s string) *File {
	t.Helper()
	f, err := Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return f
}

func TestSetReplacesExisting(t *testing.T) {
	f := parse(t, inputNML)

	if err := f.Set("ocean_solo_nml", "date_init", Ints{2022, 3, 27, 21, 0, 0}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := f.Set("fms_nml", "domains_stack_size", Int(116640000)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	tests := []struct {
		group, key, want string
	}{
		{"ocean_solo_nml", "date_init", "2022, 3, 27, 21, 0, 0"},
		{"fms_nml", "domains_stack_size", "116640000"},
		{"fms_nml", "stack_size", "0"},
		{"ocean_solo_nml", "calendar", "'julian'"},
	}
	for _, tt := range tests {
		got, ok := f.Get(tt.group, tt.key)
		if !ok || got != tt.want {
			t.Errorf("Get(%s, %s) = %q, %v; want %q", tt.group, tt.key, got, ok, tt.want)
		}
	}

	out := string(f.Bytes())
	if strings.Count(out, "date_init") != 1 {
		t.Errorf("date_init should appear once, got:\n%s", out)
	}
	if !strings.Contains(out, "            date_init = 2022, 3, 27, 21, 0, 0,\n") {
		t.Errorf("indentation not kept, got:\n%s", out)
	}
}

func TestSetInsertsMissing(t *testing.T) {
	f := parse(t, inputNML)

	if err := f.Set("FMS_NML", "print_memory_usage", Bool(true)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok := f.Get("fms_nml", "print_memory_usage")
	if !ok || got != ".true." {
		t.Errorf("Get() = %q, %v; want .true.", got, ok)
	}

	// the terminator of ocean_solo_nml shares a line with the last assignment
	if err := f.Set("ocean_solo_nml", "restart_interval", Ints{0, 0, 0, 6, 0, 0}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := f.Get("ocean_solo_nml", "calendar"); got != "'julian'" {
		t.Errorf("calendar = %q after insert", got)
	}
	if got, _ := f.Get("ocean_solo_nml", "restart_interval"); got != "0, 0, 0, 6, 0, 0" {
		t.Errorf("restart_interval = %q", got)
	}
	if !strings.HasSuffix(string(f.Bytes()), "/\n") {
		t.Errorf("group terminator lost:\n%s", f.Bytes())
	}
}

func TestSetReplacesContinuation(t *testing.T) {
	f := parse(t, inputNML)

	if err := f.Set("MOM_input_nml", "parameter_filename", String("MOM_input")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	out := string(f.Bytes())
	if strings.Contains(out, "MOM_override") {
		t.Errorf("continuation line not replaced:\n%s", out)
	}
	if got, _ := f.Get("MOM_input_nml", "restart_output_dir"); got != "'RESTART/'" {
		t.Errorf("neighbor assignment changed: %q", got)
	}
}

func TestSetLastAssignmentOnTerminatorLine(t *testing.T) {
	f := parse(t, inputNML)

	if err := f.Set("ocean_solo_nml", "calendar", String("noleap")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := f.Get("ocean_solo_nml", "calendar"); got != "'noleap'" {
		t.Errorf("calendar = %q", got)
	}
	if _, ok := f.group("ocean_solo_nml"); !ok {
		t.Error("group no longer terminated")
	}
}

func TestSetSharedLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
		value Value
		want  string
	}{
		{
			name:  "first of two on one line",
			input: "&fms_nml\n    domains_stack_size = 100, stack_size = 0 /\n",
			key:   "domains_stack_size",
			value: Int(5000000),
			want:  "&fms_nml\n    domains_stack_size = 5000000, stack_size = 0 /\n",
		},
		{
			name:  "second of two on one line",
			input: "&fms_nml\n    domains_stack_size = 100, stack_size = 0 /\n",
			key:   "stack_size",
			value: Int(7),
			want:  "&fms_nml\n    domains_stack_size = 100, stack_size = 7 /\n",
		},
		{
			name:  "last of three on one line",
			input: "&ocean_solo_nml\n    months = 0, days = 0, date_init = 1900,1,1,0,0,0\n/\n",
			key:   "date_init",
			value: Ints{2022, 3, 27, 21, 0, 0},
			want:  "&ocean_solo_nml\n    months = 0, days = 0, date_init = 2022, 3, 27, 21, 0, 0\n/\n",
		},
		{
			name:  "key on the group line",
			input: "&fms_nml domains_stack_size = 100 /\n",
			key:   "domains_stack_size",
			value: Int(5000000),
			want:  "&fms_nml domains_stack_size = 5000000 /\n",
		},
		{
			name:  "trailing comment kept",
			input: "&g\n  a = 1 ! the a\n  b = 'x!y' /\n",
			key:   "a",
			value: Int(2),
			want:  "&g\n  a = 2 ! the a\n  b = 'x!y' /\n",
		},
		{
			name:  "quoted separators",
			input: "&g\n  s = 'a=b/c', n = 1\n/\n",
			key:   "n",
			value: Int(2),
			want:  "&g\n  s = 'a=b/c', n = 2\n/\n",
		},
		{
			name:  "insert before &end",
			input: "&g\n  a = 1\n&end\n",
			key:   "b",
			value: Int(3),
			want:  "&g\n  a = 1\n  b = 3\n&end\n",
		},
		{
			name:  "insert into empty group",
			input: "&g /\n",
			key:   "a",
			value: Int(1),
			want:  "&g\n    a = 1\n/\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parse(t, tt.input)
			group := strings.Fields(strings.TrimPrefix(tt.input, "&"))[0]
			if err := f.Set(group, tt.key, tt.value); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if got := string(f.Bytes()); got != tt.want {
				t.Errorf("Set() =\n%s\nwant\n%s", got, tt.want)
			}
			if got, _ := f.Get(group, tt.key); got != tt.value.Fortran() {
				t.Errorf("Get(%s) = %q, want %q", tt.key, got, tt.value.Fortran())
			}
		})
	}
}

func TestGetSharedLine(t *testing.T) {
	f := parse(t, "&fms_nml\n    domains_stack_size = 100, stack_size = 0 /\n")
	for key, want := range map[string]string{"domains_stack_size": "100", "stack_size": "0"} {
		if got, ok := f.Get("fms_nml", key); !ok || got != want {
			t.Errorf("Get(%s) = %q, %v; want %q", key, got, ok, want)
		}
	}
}

func TestSetMissingGroup(t *testing.T) {
	f := parse(t, inputNML)
	if err := f.Set("diag_manager_nml", "max_files", Int(1)); err == nil {
		t.Error("Set() on missing group expected error")
	}
}

func TestValueFortran(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Int(7), "7"},
		{Ints{2022, 3, 28}, "2022, 3, 28"},
		{String("it's"), "'it''s'"},
		{Bool(false), ".false."},
	}
	for _, tt := range tests {
		if got := tt.v.Fortran(); got != tt.want {
			t.Errorf("Fortran() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseFileWriteFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input.nml")
	if err := os.WriteFile(src, []byte(inputNML), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := ParseFile(src)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	dst := filepath.Join(dir, "mom_input.nml")
	if err := f.WriteFile(dst); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != inputNML {
		t.Errorf("unmodified round trip changed the file:\n%s", data)
	}

	if _, err := ParseFile(filepath.Join(dir, "missing.nml")); err == nil {
		t.Error("ParseFile() on missing file expected error")
	}
}
