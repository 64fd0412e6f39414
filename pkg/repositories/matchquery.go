package repositories

import (
	"fmt"
	"strings"
)

// The exact-match queries are assembled from typed CTE fragments instead of
// ad-hoc string surgery. Caller-supplied values are always bound parameters:
// $1 is the input array (bigint[] for keys, text[] for barcodes and external
// codes) and $2 is the per-input limit (<= 0 means unlimited). Identifiers
// never originate from input data.

// matchMode selects which side (or value kind) the caller queries by.
type matchMode int

const (
	modeByAKey matchMode = iota
	modeByBKey
	modeByBarcode
	modeByExternalCode
)

// cte is a single named common table expression.
type cte struct {
	name string
	body string
}

// matchQuery collects the fragments for one query mode.
type matchQuery struct {
	ctes       []cte
	projection []string
	from       string
	joins      []string
	filter     string
	partition  string
	rankOrder  string
	finalOrder string
}

func (q *matchQuery) addCTE(name, body string) {
	q.ctes = append(q.ctes, cte{name: name, body: body})
}

// SQL renders the assembled query.
func (q *matchQuery) SQL() string {
	var b strings.Builder

	b.WriteString("WITH ")
	for i, c := range q.ctes {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString(c.name)
		b.WriteString(" AS (\n")
		b.WriteString(c.body)
		b.WriteString("\n)")
	}

	b.WriteString(",\njoined AS (\n    SELECT ")
	b.WriteString(strings.Join(q.projection, ",\n           "))
	b.WriteString("\n    FROM ")
	b.WriteString(q.from)
	for _, j := range q.joins {
		b.WriteString("\n    ")
		b.WriteString(j)
	}
	if q.filter != "" {
		b.WriteString("\n    WHERE ")
		b.WriteString(q.filter)
	}
	b.WriteString("\n)")

	fmt.Fprintf(&b, `,
ranked AS (
    SELECT j.*, ROW_NUMBER() OVER (PARTITION BY %s ORDER BY %s) AS rn
    FROM joined j
)
SELECT r.* FROM ranked r
WHERE ($2::int <= 0 OR r.rn <= $2::int)
ORDER BY %s`, q.partition, q.rankOrder, q.finalOrder)

	return b.String()
}

// ----------------------------------------------------------------------------
// Input fragments
// ----------------------------------------------------------------------------

func inputKeysCTE(column string) cte {
	return cte{
		name: "inp",
		body: fmt.Sprintf("    SELECT DISTINCT k AS %s FROM unnest($1::bigint[]) AS k", column),
	}
}

func inputValuesCTE(column string) cte {
	return cte{
		name: "inp",
		body: fmt.Sprintf("    SELECT DISTINCT btrim(v) AS %s FROM unnest($1::text[]) AS v WHERE btrim(v) <> ''", column),
	}
}

// ----------------------------------------------------------------------------
// Barcode normalizer fragments
//
// Both catalogs expand their JSON barcode lists to one row per barcode.
// A row is primary iff the barcode equals the attribute row's declared
// primary. When the authoritative primary is not among the listed barcodes,
// one extra primary row is synthesized, so every product with a known primary
// barcode carries exactly one primary row even when source data disagrees.
// ----------------------------------------------------------------------------

func catalogACTEs(q *matchQuery, restrictToInput bool) {
	join := ""
	if restrictToInput {
		join = "\n    JOIN inp ON inp.a_key = p.a_key"
	}
	q.addCTE("a_base", fmt.Sprintf(`    SELECT p.a_key, p.vendor_code, p.primary_barcode AS a_declared_primary
    FROM catalog_a_products AS p%s`, join))

	q.addCTE("a_listed", `    SELECT b.a_key, b.vendor_code, j.barcode,
           COALESCE(j.barcode = f.primary_barcode, FALSE) AS is_primary,
           f.primary_barcode AS a_primary_barcode,
           f.manufacturer_size AS a_size,
           f.product_name AS a_name,
           f.brand AS a_brand,
           f.color AS a_color
    FROM a_base AS b
    LEFT JOIN catalog_a_attributes AS f ON f.vendor_code = b.vendor_code
    CROSS JOIN LATERAL jsonb_array_elements_text(COALESCE(f.barcodes, '[]'::jsonb)) AS j(barcode)`)

	q.addCTE("a_extra", `    SELECT b.a_key, b.vendor_code, b.a_declared_primary AS barcode,
           TRUE AS is_primary,
           b.a_declared_primary AS a_primary_barcode,
           NULL::text AS a_size,
           NULL::text AS a_name,
           NULL::text AS a_brand,
           NULL::text AS a_color
    FROM a_base AS b
    LEFT JOIN catalog_a_attributes AS f ON f.vendor_code = b.vendor_code
    WHERE b.a_declared_primary IS NOT NULL
      AND NOT EXISTS (
          SELECT 1 FROM jsonb_array_elements_text(COALESCE(f.barcodes, '[]'::jsonb)) AS j(barcode)
          WHERE j.barcode = b.a_declared_primary
      )`)

	q.addCTE("a_barcodes", `    SELECT DISTINCT a_key, vendor_code, barcode, is_primary,
                    a_primary_barcode, a_size, a_name, a_brand, a_color
    FROM (SELECT * FROM a_listed UNION ALL SELECT * FROM a_extra) AS u
    WHERE barcode IS NOT NULL`)
}

func catalogBCTEs(q *matchQuery, restrictToInput bool) {
	join := ""
	if restrictToInput {
		join = "\n    JOIN inp ON inp.b_key = p.b_key"
	}
	q.addCTE("b_base", fmt.Sprintf(`    SELECT p.b_key, p.article, p.barcodes, p.primary_barcode,
           p.size, p.brand, p.color
    FROM catalog_b_products AS p%s`, join))

	q.addCTE("b_listed", `    SELECT b.b_key, j.barcode,
           COALESCE(j.barcode = b.primary_barcode, FALSE) AS is_primary,
           b.primary_barcode AS b_primary_barcode,
           b.size AS b_size,
           b.article AS b_article,
           b.brand AS b_brand,
           b.color AS b_color
    FROM b_base AS b
    CROSS JOIN LATERAL jsonb_array_elements_text(COALESCE(b.barcodes, '[]'::jsonb)) AS j(barcode)`)

	q.addCTE("b_extra", `    SELECT b.b_key, b.primary_barcode AS barcode,
           TRUE AS is_primary,
           b.primary_barcode AS b_primary_barcode,
           b.size AS b_size,
           b.article AS b_article,
           b.brand AS b_brand,
           b.color AS b_color
    FROM b_base AS b
    WHERE b.primary_barcode IS NOT NULL
      AND NOT EXISTS (
          SELECT 1 FROM jsonb_array_elements_text(COALESCE(b.barcodes, '[]'::jsonb)) AS j(barcode)
          WHERE j.barcode = b.primary_barcode
      )`)

	q.addCTE("b_barcodes", `    SELECT DISTINCT b_key, barcode, is_primary,
                    b_primary_barcode, b_size, b_article, b_brand, b_color
    FROM (SELECT * FROM b_listed UNION ALL SELECT * FROM b_extra) AS u
    WHERE barcode IS NOT NULL`)
}

// refMapCTE joins the optional reference tables into barcode -> (external
// code, collection) rows.
func refMapCTE(q *matchQuery) {
	q.addCTE("ref_map", `    SELECT rb.barcode, rb.external_code, rpc.collection
    FROM ref_barcodes AS rb
    LEFT JOIN ref_product_codes AS rpc ON rpc.external_code = rb.external_code`)
}

// ----------------------------------------------------------------------------
// Projection fragments
// ----------------------------------------------------------------------------

func tierProjection(aPrimary, bPrimary string) []string {
	return []string{
		fmt.Sprintf(`CASE
               WHEN %[1]s AND %[2]s THEN 'primary↔primary'
               WHEN %[1]s AND NOT %[2]s THEN 'primary↔any'
               WHEN NOT %[1]s AND %[2]s THEN 'any↔primary'
               ELSE 'any↔any'
           END AS matched_by`, aPrimary, bPrimary),
		fmt.Sprintf(`CASE
               WHEN %[1]s AND %[2]s THEN 100
               WHEN %[1]s OR %[2]s THEN 80
               ELSE 60
           END AS match_score`, aPrimary, bPrimary),
	}
}

func refProjection(enrich bool) []string {
	if !enrich {
		return []string{
			"NULL::text AS ref_collection_a",
			"NULL::text AS ref_external_a",
			"NULL::text AS ref_collection_b",
			"NULL::text AS ref_external_b",
			"NULL::boolean AS ref_equal",
		}
	}
	return []string{
		"rm_a.collection AS ref_collection_a",
		"rm_a.external_code AS ref_external_a",
		"rm_b.collection AS ref_collection_b",
		"rm_b.external_code AS ref_external_b",
		"(rm_a.external_code = rm_b.external_code) AS ref_equal",
	}
}

// refJoins attaches the reference map via each side's primary barcode. The
// hit barcode is used only when the primary is unknown (the tag source is
// keyed by barcode, so a null primary would otherwise always lose the tag).
func refJoins(q *matchQuery) {
	q.joins = append(q.joins,
		"LEFT JOIN ref_map AS rm_a ON rm_a.barcode = COALESCE(o.a_primary_barcode, o.barcode)",
		"LEFT JOIN ref_map AS rm_b ON rm_b.barcode = COALESCE(w.b_primary_barcode, w.barcode)",
	)
}

func sideProjection(inputValue string) []string {
	return []string{
		inputValue + " AS input_value",
		"o.a_key",
		"o.vendor_code AS a_vendor_code",
		"w.b_key",
		"COALESCE(o.is_primary, FALSE) AS a_primary_hit",
		"COALESCE(w.is_primary, FALSE) AS b_primary_hit",
		"o.a_primary_barcode", "o.a_size", "o.a_name", "o.a_brand", "o.a_color",
		"w.b_primary_barcode", "w.b_size", "w.b_article", "w.b_brand", "w.b_color",
	}
}

// ----------------------------------------------------------------------------
// Assembly per mode
// ----------------------------------------------------------------------------

// buildMatchQuery assembles the full SQL for one query mode. enrich controls
// whether the optional reference overlay is joined in; the projection keeps a
// fixed column set either way so a single scanner serves every mode.
func buildMatchQuery(mode matchMode, enrich bool) string {
	q := &matchQuery{}

	const (
		aPrimary = "COALESCE(o.is_primary, FALSE)"
		bPrimary = "COALESCE(w.is_primary, FALSE)"
	)

	switch mode {
	case modeByAKey:
		q.ctes = append(q.ctes, inputKeysCTE("a_key"))
		catalogACTEs(q, true)
		catalogBCTEs(q, false)
		q.projection = append(sideProjection("o.a_key::text"), "o.barcode AS barcode_hit")
		q.from = "a_barcodes AS o"
		q.joins = append(q.joins, "JOIN b_barcodes AS w ON w.barcode = o.barcode")
		q.partition = "j.a_key"
		q.rankOrder = "j.match_score DESC, j.b_key"
		q.finalOrder = "r.a_key, r.match_score DESC, r.b_key"

	case modeByBKey:
		q.ctes = append(q.ctes, inputKeysCTE("b_key"))
		catalogBCTEs(q, true)
		catalogACTEs(q, false)
		q.projection = append(sideProjection("w.b_key::text"), "w.barcode AS barcode_hit")
		q.from = "b_barcodes AS w"
		q.joins = append(q.joins, "JOIN a_barcodes AS o ON o.barcode = w.barcode")
		q.partition = "j.b_key"
		q.rankOrder = "j.match_score DESC, j.a_key"
		q.finalOrder = "r.b_key, r.match_score DESC, r.a_key"

	case modeByBarcode:
		q.ctes = append(q.ctes, inputValuesCTE("barcode"))
		catalogACTEs(q, false)
		catalogBCTEs(q, false)
		q.projection = append(sideProjection("i.barcode"), "i.barcode AS barcode_hit")
		q.from = "inp AS i"
		q.joins = append(q.joins,
			"LEFT JOIN a_barcodes AS o ON o.barcode = i.barcode",
			"LEFT JOIN b_barcodes AS w ON w.barcode = i.barcode",
		)
		// A hit must resolve to a product on at least one side.
		q.filter = "o.a_key IS NOT NULL OR w.b_key IS NOT NULL"
		q.partition = "j.input_value"
		q.rankOrder = "j.match_score DESC, j.a_key, j.b_key"
		q.finalOrder = "r.input_value, r.match_score DESC, r.a_key, r.b_key"

	case modeByExternalCode:
		q.ctes = append(q.ctes, inputValuesCTE("external_code"))
		q.addCTE("matched", `    SELECT i.external_code, rb.barcode
    FROM inp AS i
    JOIN ref_barcodes AS rb ON rb.external_code = i.external_code`)
		catalogACTEs(q, false)
		catalogBCTEs(q, false)
		q.projection = append(sideProjection("m.external_code"), "m.barcode AS barcode_hit")
		q.from = "matched AS m"
		q.joins = append(q.joins,
			"LEFT JOIN a_barcodes AS o ON o.barcode = m.barcode",
			"LEFT JOIN b_barcodes AS w ON w.barcode = m.barcode",
		)
		q.filter = "o.a_key IS NOT NULL OR w.b_key IS NOT NULL"
		q.partition = "j.input_value"
		q.rankOrder = "j.match_score DESC, j.a_key, j.b_key"
		q.finalOrder = "r.input_value, r.match_score DESC, r.a_key, r.b_key"
	}

	q.projection = append(q.projection, tierProjection(aPrimary, bPrimary)...)
	if enrich {
		refMapCTE(q)
		refJoins(q)
	}
	q.projection = append(q.projection, refProjection(enrich)...)

	return q.SQL()
}

// vendorCodeKeysSQL maps Catalog-A vendor codes to their keys so vendor-code
// batches can reuse the by-key query.
const vendorCodeKeysSQL = `
SELECT DISTINCT p.a_key
FROM catalog_a_products AS p
JOIN unnest($1::text[]) AS i(vendor_code) ON i.vendor_code = p.vendor_code
WHERE p.a_key IS NOT NULL
ORDER BY p.a_key`
