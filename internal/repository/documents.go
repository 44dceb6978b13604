package repository

import "database/sql"

// scanDocuments reads every row into a column-name keyed map. Feature-built
// queries project a per-request column set, so rows cannot land in a fixed
// struct; the maps serialize straight to JSON. Byte slices (the MySQL text
// protocol's default) become strings.
func scanDocuments(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []map[string]any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		doc := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				doc[c] = string(b)
			} else {
				doc[c] = vals[i]
			}
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
