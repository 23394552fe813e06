package ai

import (
	"strings"
	"testing"
)

func TestExtractSQLPlain(t *testing.T) {
	in := "SELECT client_name FROM fact_orders WHERE __ORDERLENS_FILTERS__"
	if got := ExtractSQL(in); got != in {
		t.Errorf("ExtractSQL changed a clean statement: %q", got)
	}
}

func TestExtractSQLStripsFences(t *testing.T) {
	in := "```sql\nSELECT TOP 5 product_name FROM fact_orders WHERE __ORDERLENS_FILTERS__\n```"
	got := ExtractSQL(in)
	if strings.Contains(got, "```") {
		t.Errorf("fence survived: %q", got)
	}
	if !strings.HasPrefix(got, "SELECT TOP 5") {
		t.Errorf("statement mangled: %q", got)
	}
}

func TestExtractSQLStripsThinkTags(t *testing.T) {
	in := "<think>The user wants revenue by country, I should group by client_country.</think>\nSELECT client_country, SUM(revenue) AS revenue FROM fact_orders WHERE __ORDERLENS_FILTERS__ GROUP BY client_country"
	got := ExtractSQL(in)
	if strings.Contains(got, "think") {
		t.Errorf("reasoning tag survived: %q", got)
	}
	if !strings.HasPrefix(got, "SELECT client_country") {
		t.Errorf("statement mangled: %q", got)
	}
}

func TestExtractSQLDropsChatter(t *testing.T) {
	in := "Sure! Here is the query you asked for:\n\nSELECT SUM(revenue) AS total FROM fact_orders WHERE __ORDERLENS_FILTERS__;\n\nLet me know if you need anything else."
	got := ExtractSQL(in)
	want := "SELECT SUM(revenue) AS total FROM fact_orders WHERE __ORDERLENS_FILTERS__"
	if got != want {
		t.Errorf("ExtractSQL = %q, want %q", got, want)
	}
}

func TestExtractSQLWithCTE(t *testing.T) {
	in := "WITH daily AS (SELECT order_date, SUM(revenue) AS r FROM fact_orders WHERE __ORDERLENS_FILTERS__ GROUP BY order_date) SELECT * FROM daily"
	got := ExtractSQL(in)
	if !strings.HasPrefix(got, "WITH daily") {
		t.Errorf("CTE start not found: %q", got)
	}
}

func TestExtractSQLSemicolonInLiteral(t *testing.T) {
	in := "SELECT 'a;b' AS label FROM fact_orders WHERE __ORDERLENS_FILTERS__"
	got := ExtractSQL(in)
	if !strings.Contains(got, "'a;b'") {
		t.Errorf("cut inside a string literal: %q", got)
	}
}

func TestExtractSQLNoStatement(t *testing.T) {
	if got := ExtractSQL("I cannot answer that question."); got != "" {
		t.Errorf("ExtractSQL = %q, want empty", got)
	}
	if got := ExtractSQL(""); got != "" {
		t.Errorf("ExtractSQL(\"\") = %q, want empty", got)
	}
}
