package domain

import "testing"

func TestRecommendation_SeverityIsExplicit(t *testing.T) {
	if !(Recommend.Severity() < Consider.Severity() && Consider.Severity() < NotRecommend.Severity()) {
		t.Fatalf("severity order broken: R=%d C=%d NR=%d",
			Recommend.Severity(), Consider.Severity(), NotRecommend.Severity())
	}
	if Recommendation("MAYBE").Severity() != -1 || Recommendation("MAYBE").Valid() {
		t.Fatalf("unknown verdicts must rank -1 and be invalid")
	}
}

func TestParseRecommendation(t *testing.T) {
	ok := map[string]Recommendation{
		"RECOMMEND":       Recommend,
		" recommended ":   Recommend,
		"consider":        Consider,
		"Not Recommend":   NotRecommend,
		"not-recommended": NotRecommend,
		"NOT_RECOMMEND":   NotRecommend,
	}
	for in, want := range ok {
		got, err := ParseRecommendation(in)
		if err != nil || got != want {
			t.Fatalf("ParseRecommendation(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseRecommendation("strong hire"); err == nil {
		t.Fatalf("expected error for unknown verdict")
	}
}
