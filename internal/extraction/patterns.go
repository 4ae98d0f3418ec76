package extraction

// Pattern is a weighted classification pattern. The weight doubles as the
// field confidence when the pattern is the best match.
type Pattern struct {
	Name   string  `json:"name" koanf:"name"`
	Regex  string  `json:"regex" koanf:"regex"`
	Weight float64 `json:"weight" koanf:"weight"`
}

// Classification vocabularies. Thai and English terms are matched together
// because sales notes in the field mix both freely.

func categoryPatterns() []Pattern {
	return []Pattern{
		{Name: "sales", Regex: `(?i)สั่ง|ซื้อ|ขาย|ใบเสนอราคา|ออเดอร์|order|quotation|purchase|sale|deal`, Weight: 0.80},
		{Name: "support", Regex: `(?i)ร้องเรียน|ปัญหา|แก้ไข|เคลม|complain|problem|issue|defect`, Weight: 0.78},
		{Name: "follow-up", Regex: `(?i)ติดตาม|ทวงถาม|follow[\s-]?up|check back`, Weight: 0.72},
		{Name: "meeting", Regex: `(?i)ประชุม|นัดพบ|meeting|appointment`, Weight: 0.65},
	}
}

func activityTypePatterns() []Pattern {
	return []Pattern{
		{Name: "meeting", Regex: `(?i)ประชุม|พบ|เยี่ยม|visit|met with|meeting`, Weight: 0.75},
		{Name: "call", Regex: `(?i)โทร|คุยกับ|สายจาก|call|phone|spoke (?:with|to)`, Weight: 0.70},
	}
}

func priorityPatterns() []Pattern {
	return []Pattern{
		{Name: "high", Regex: `(?i)ด่วน|เร่ง|ทันที|วันนี้|urgent|asap|immediately`, Weight: 0.85},
		{Name: "low", Regex: `(?i)ไม่รีบ|ไม่ด่วน|ว่างๆ|no rush|low priority|whenever`, Weight: 0.70},
	}
}

// Capture expressions for value-bearing fields.
const (
	// honorific + Thai or Latin name: คุณสมชาย, คุณ Somchai, Khun Malee
	honorificRegex = `(?:คุณ|Khun)\s*([\p{Thai}A-Za-z]+)`
	// company reference: บริษัท ABC
	companyRegex = `(?i)(?:บริษัท|company)\s*([\p{Thai}A-Za-z0-9.&-]+)`
	// Thai mobile/landline or international numbers
	phoneRegex = `0\d{1,2}[- ]?\d{3}[- ]?\d{3,4}|\+\d{9,13}`
	emailRegex = `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`
	// amount followed by a currency marker, thousands separators allowed
	amountRegex = `(?i)(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)\s*(?:บาท|baht|thb|฿)`
	// clause-level action verbs; clauses matching these become action items
	actionRegex = `(?i)ติดตาม|ส่ง|นัด|โทรกลับ|เตรียม|follow[\s-]?up|send|schedule|prepare|call back`

	dueTomorrowRegex = `(?i)พรุ่งนี้|tomorrow`
	dueNextWeekRegex = `(?i)สัปดาห์หน้า|อาทิตย์หน้า|next week`
)

// Default classifications when nothing matches.
const (
	defaultCategory     = "general"
	defaultActivityType = "voice-note"
	defaultPriority     = "medium"
	defaultPriorityConf = 0.50
)

// Field confidences for capture-based extractions. These are policy
// numbers: honorific-matched names sit above the 0.60 identity threshold,
// currency-marked amounts sit above the 0.50 numeric threshold.
const (
	honorificNameConf = 0.65
	companyNameConf   = 0.60
	phoneConf         = 0.65
	emailConf         = 0.70
	amountConf        = 0.55
	dueDateConf       = 0.60
	hintConf          = 0.80
)
