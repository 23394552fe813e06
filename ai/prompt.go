package ai

import (
	"fmt"

	"orderlens/validation"
)

// schemaDescription is the only table the model may query. Literal filter
// values are never part of any prompt; the model refers to them through the
// placeholder token alone.
const schemaDescription = `Table: fact_orders
Columns:
- order_id (INT): unique order identifier
- order_date (DATE): date the order was placed
- client_name (NVARCHAR): customer account name
- client_country (NVARCHAR): customer country
- order_type (NVARCHAR): product type / order category
- product_name (NVARCHAR): product sold
- product_brand (NVARCHAR): brand of the product
- supplier_name (NVARCHAR): supplier fulfilling the order
- revenue (DECIMAL): order revenue in reporting currency
- cost (DECIMAL): order cost in reporting currency
- margin (DECIMAL): revenue minus cost
- quantity (INT): units ordered
- is_test (BIT): 1 for internal test orders, excluded from reporting

Terminology:
- "sales", "turnover", "GMV" all mean SUM(revenue)
- "orders" and "volume" mean COUNT(DISTINCT order_id)
- "profit" means SUM(margin)
- "AOV" (average order value) means SUM(revenue) / COUNT(DISTINCT order_id)`

// BuildSQLPrompt asks for one SELECT over the known schema. The dashboard
// filter context arrives as a shape summary only (counts, never values),
// and the WHERE clause must carry the placeholder exactly once.
func BuildSQLPrompt(question, filterSummary string) string {
	return fmt.Sprintf(`You are a SQL expert writing Microsoft SQL Server (T-SQL) queries for an order analytics dashboard.

%s

The user has dashboard filters active (%s). You cannot see the filter values. Instead, your query MUST include the token %s exactly once inside the WHERE clause. The server replaces it with the real filter predicate before execution.

Rules:
1. Write exactly ONE SELECT statement (WITH ... SELECT is allowed). No other statement kind.
2. Include %s exactly once in the WHERE clause, combined with AND if you add other conditions.
3. Never write literal filter values (dates, countries, client names) yourself.
4. Query only the fact_orders table described above.
5. Use TOP N instead of LIMIT. Alias aggregate columns with readable names.
6. Return ONLY the SQL, no explanation and no markdown.

User question: %s

SQL:`, schemaDescription, filterSummary, validation.PlaceholderToken, validation.PlaceholderToken, question)
}

// BuildRepairPrompt gives the model one chance to fix a query the database
// rejected. It sees the failing SQL template and the database error, still
// never the filter values.
func BuildRepairPrompt(question, filterSummary, badSQL, dbError string) string {
	return fmt.Sprintf(`You are a SQL expert fixing a Microsoft SQL Server (T-SQL) query that failed.

%s

The user asked: %s
Dashboard filters active: %s (values hidden, represented by the token %s which must appear exactly once in the WHERE clause).

This query failed:
%s

Database error:
%s

Rewrite the query so it runs. Keep it a single SELECT over fact_orders, keep the %s token exactly once in the WHERE clause, and return ONLY the corrected SQL with no explanation and no markdown.

SQL:`, schemaDescription, question, filterSummary, validation.PlaceholderToken, badSQL, dbError, validation.PlaceholderToken)
}
