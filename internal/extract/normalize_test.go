package extract

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "table prefix stripped",
			in:   "表1 贯通式驱动桥主减速器总成爆炸图对应备件目录",
			want: "贯通式驱动桥主减速器总成爆炸图对应备件目录",
		},
		{
			name: "prefix and ascii continuation suffix",
			in:   "表3 ABC(续)",
			want: "ABC",
		},
		{
			name: "fullwidth continuation suffix",
			in:   "表12 驱动桥轮边减速器（续）",
			want: "驱动桥轮边减速器",
		},
		{
			name: "whitespace only",
			in:   "  ",
			want: "",
		},
		{
			name: "no markers",
			in:   "no markers here",
			want: "no markers here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTitle(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitleIdempotent(t *testing.T) {
	inputs := []string{
		"表1 贯通式驱动桥主减速器总成爆炸图对应备件目录",
		"表3 ABC(续)",
		"表 5 转向节总成（续）",
		"",
		"  ",
		"no markers here",
		"驱动桥",
	}

	for _, in := range inputs {
		once := NormalizeTitle(in)
		twice := NormalizeTitle(once)
		if once != twice {
			t.Errorf("NormalizeTitle not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestSplitBilingualLabel(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		wantCN string
		wantEN string
	}{
		{
			name:   "comma separated english",
			in:     "燃油泵PUMP,FUEL",
			wantCN: "燃油泵",
			wantEN: "Pump Fuel",
		},
		{
			name:   "multi word english",
			in:     "缸体管路PLUMBING,CYLINDER BLOCK",
			wantCN: "缸体管路",
			wantEN: "Plumbing Cylinder Block",
		},
		{
			name:   "no script transition stays verbatim",
			in:     "APPROVAL,AGENCY",
			wantCN: "",
			wantEN: "APPROVAL,AGENCY",
		},
		{
			name:   "empty input",
			in:     "",
			wantCN: "",
			wantEN: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cn, en := SplitBilingualLabel(tt.in)
			if cn != tt.wantCN || en != tt.wantEN {
				t.Errorf("SplitBilingualLabel(%q) = (%q, %q), want (%q, %q)",
					tt.in, cn, en, tt.wantCN, tt.wantEN)
			}
		})
	}
}
