package sqlite

// Schema statements, applied in order on Open. Text comparison is binary,
// so stage and template names are matched case-sensitively.
const (
	createStages = `CREATE TABLE IF NOT EXISTS stages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);`

	createRouteTemplates = `CREATE TABLE IF NOT EXISTS route_templates (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    created_at TEXT NOT NULL
);`

	createRouteTemplateStages = `CREATE TABLE IF NOT EXISTS route_template_stages (
    route_template_id INTEGER NOT NULL REFERENCES route_templates(id) ON DELETE CASCADE,
    position INTEGER NOT NULL CHECK (position >= 0),
    stage_id INTEGER NOT NULL REFERENCES stages(id),
    PRIMARY KEY (route_template_id, position)
);`

	createParts = `CREATE TABLE IF NOT EXISTS parts (
    designation_code TEXT PRIMARY KEY,
    product_designation TEXT NOT NULL,
    name TEXT NOT NULL,
    quantity_total INTEGER NOT NULL CHECK (quantity_total > 0),
    quantity_completed INTEGER NOT NULL DEFAULT 0,
    size TEXT,
    material TEXT,
    drawing_filename TEXT,
    route_template_id INTEGER REFERENCES route_templates(id),
    created_by TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createPartsGroupIndex = `CREATE INDEX IF NOT EXISTS parts_product_designation_idx ON parts (product_designation);`

	createStageCompletions = `CREATE TABLE IF NOT EXISTS part_stage_completions (
    designation_code TEXT NOT NULL REFERENCES parts(designation_code) ON DELETE CASCADE,
    position INTEGER NOT NULL CHECK (position >= 0),
    completed_by TEXT NOT NULL,
    completed_at TEXT NOT NULL,
    PRIMARY KEY (designation_code, position)
);`
)

var schema = []string{
	createStages,
	createRouteTemplates,
	createRouteTemplateStages,
	createParts,
	createPartsGroupIndex,
	createStageCompletions,
}
