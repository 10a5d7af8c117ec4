package postgres

import (
	"fmt"
	"strings"

	"github.com/utafrali/ecommerce-discovery/internal/query"
)

// args collects positional parameters while a statement is rendered.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// orderBy is the ORDER BY for each pushdown sort mode. Every clause ends in
// the primary key so windows are stable.
var orderBy = map[query.SortMode]string{
	query.SortName:   `p.name COLLATE "C" ASC, p.id ASC`,
	query.SortRating: `p.average_rating DESC NULLS LAST, p.review_count DESC, p.id ASC`,
	query.SortViews:  `p.view_count DESC, p.id ASC`,
	query.SortSales:  `p.total_sales DESC, p.id ASC`,
	query.SortRecent: `p.created_at DESC, p.id ASC`,
}

// conditions renders the plan's predicates. Variant and inventory facets
// are EXISTS semi-joins so a product row is never duplicated.
func conditions(plan *query.Plan, a *args) []string {
	conds := []string{"p.deleted_at IS NULL"}

	if plan.StoreID != "" {
		conds = append(conds, "p.store_id = "+a.add(plan.StoreID))
	}

	for _, term := range plan.Terms {
		ph := a.add(term)
		conds = append(conds, fmt.Sprintf("(strpos(lower(p.name), %s) > 0 OR strpos(lower(p.description), %s) > 0)", ph, ph))
	}

	if len(plan.CategoryIDs) > 0 {
		conds = append(conds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id = p.id AND pc.category_id = ANY(%s))",
			a.add(plan.CategoryIDs)))
	}

	if plan.Price != nil {
		bounds := []string{"v.product_id = p.id"}
		if plan.Price.Min != nil {
			bounds = append(bounds, "v.price >= "+a.add(*plan.Price.Min))
		}
		if plan.Price.Max != nil {
			bounds = append(bounds, "v.price <= "+a.add(*plan.Price.Max))
		}
		conds = append(conds, "EXISTS (SELECT 1 FROM product_variants v WHERE "+strings.Join(bounds, " AND ")+")")
	}

	if plan.Rating != nil {
		conds = append(conds, "p.average_rating IS NOT NULL")
		if plan.Rating.Min != nil {
			conds = append(conds, "p.average_rating >= "+a.add(*plan.Rating.Min))
		}
		if plan.Rating.Max != nil {
			conds = append(conds, "p.average_rating <= "+a.add(*plan.Rating.Max))
		}
	}

	if plan.InStockOnly {
		conds = append(conds, "EXISTS (SELECT 1 FROM product_variants v JOIN inventory i ON i.variant_id = v.id "+
			"WHERE v.product_id = p.id AND i.quantity > 0)")
	}

	return conds
}

// renderMatch builds the id-selection statement. Pushdown modes are ordered
// and windowed in SQL with the full count alongside each row.
func renderMatch(plan *query.Plan) (string, []any, bool) {
	var a args
	where := strings.Join(conditions(plan, &a), "\n\t\t  AND ")
	pushdown := plan.Sort.Pushdown()

	if !pushdown {
		stmt := fmt.Sprintf(`
		SELECT p.id, p.name, p.description, p.view_count, p.like_count, p.total_sales, p.created_at
		FROM products p
		WHERE %s`, where)
		return stmt, a, false
	}

	order := orderBy[plan.Sort]
	limit := a.add(plan.Window.Limit)
	offset := a.add(plan.Window.Offset)
	stmt := fmt.Sprintf(`
		SELECT p.id, p.name, p.description, p.view_count, p.like_count, p.total_sales, p.created_at,
			   count(*) OVER() AS total_count
		FROM products p
		WHERE %s
		ORDER BY %s
		LIMIT %s OFFSET %s`, where, order, limit, offset)
	return stmt, a, true
}
