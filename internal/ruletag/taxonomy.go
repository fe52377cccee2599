package ruletag

// keywordsByDimension maps schema tag values to the free-text keywords that
// evidence them. Tags missing here fall back to matching their own name
// (with separators relaxed), so extending the schema does not require a
// taxonomy entry for every new value.
var keywordsByDimension = map[string]map[string][]string{
	"flavour_type": {
		"fruity": {
			"fruit", "fruity", "berry", "citrus", "tropical",
			"strawberry", "raspberry", "blueberry", "blackcurrant", "cherry",
			"mango", "pineapple", "watermelon", "grape", "apple", "peach",
			"banana", "lemon", "lime", "orange", "kiwi", "guava", "lychee",
		},
		"ice": {
			"ice", "icy", "iced", "cool", "cooling", "cold", "menthol",
			"mint", "spearmint", "peppermint", "frozen", "arctic", "freeze",
		},
		"tobacco": {"tobacco"},
		"dessert": {
			"dessert", "custard", "cookie", "cake", "pastry", "donut",
			"waffle", "pudding", "cream", "creamy", "vanilla", "caramel",
			"creme brulee", "bakery",
		},
		"beverage": {
			"cola", "soda", "coffee", "espresso", "latte", "tea",
			"lemonade", "cocktail", "mojito", "slush", "energy drink",
		},
		"nuts":        {"nut", "almond", "hazelnut", "peanut", "pistachio"},
		"cereal":      {"cereal", "granola", "oat"},
		"unflavoured": {"unflavoured", "unflavored", "flavourless"},
	},
	"nicotine_type": {
		"nic_salt":             {"nic salt", "nicotine salt", "salt nic"},
		"freebase_nicotine":    {"freebase"},
		"traditional_nicotine": {"traditional nicotine"},
		"pouch":                {"pouch"},
	},
	"cbd_form": {
		"tincture": {"tincture"},
		"oil":      {"oil"},
		"gummy":    {"gummy", "gummies"},
		"capsule":  {"capsule"},
		"topical":  {"topical", "balm", "salve", "cream"},
		"patch":    {"patch"},
		"paste":    {"paste"},
		"shot":     {"shot"},
		"isolate":  {"isolate powder"},
		"edible":   {"edible"},
		"beverage": {"cbd drink", "cbd beverage"},
	},
	"cbd_type": {
		"full_spectrum":  {"full spectrum", "full-spectrum"},
		"broad_spectrum": {"broad spectrum", "broad-spectrum"},
		"isolate":        {"isolate"},
		"cbg":            {"cbg"},
		"cbda":           {"cbda"},
	},
	"device_style": {
		"pen_style":   {"pen", "pen style"},
		"pod_style":   {"pod style", "pod-style"},
		"box_style":   {"box", "box mod"},
		"stick_style": {"stick", "tube"},
		"compact":     {"compact", "portable", "pocket"},
		"mini":        {"mini"},
	},
	"power_supply": {
		"rechargeable":     {"rechargeable", "usb-c", "type-c"},
		"removable_battery": {"removable battery", "18650", "21700"},
		"built_in_battery": {"built-in battery", "built in battery", "internal battery"},
	},
	"vaping_style": {
		"mouth-to-lung":            {"mtl", "mouth to lung", "mouth-to-lung"},
		"direct-to-lung":           {"dtl", "direct to lung", "direct-to-lung", "sub ohm", "sub-ohm"},
		"restricted-direct-to-lung": {"rdl", "restricted direct"},
	},
	"pod_type": {
		"prefilled_pod":   {"prefilled", "pre-filled"},
		"replacement_pod": {"replacement pod", "refillable pod", "empty pod"},
	},
	"bottle_size": {
		"shortfill": {"shortfill"},
	},
}

// secondaryFlavorWords are opportunistic flavour keywords collected verbatim
// when they appear in product text. They are informational only: not schema
// members, never placed in final tags without passing validation.
var secondaryFlavorWords = []string{
	"strawberry", "banana", "mango", "pineapple", "watermelon", "grape",
	"apple", "peach", "cherry", "blueberry", "raspberry", "blackcurrant",
	"lemon", "lime", "orange", "kiwi", "passion fruit", "guava", "lychee",
	"coconut", "vanilla", "caramel", "custard", "hazelnut", "mint",
	"spearmint", "peppermint", "aniseed", "bubblegum", "cola", "coffee",
}

// zeroNicotineKeywords mark a product as explicitly nicotine-free.
var zeroNicotineKeywords = []string{
	"0mg", "zero nicotine", "no nicotine", "nicotine free", "nicotine-free",
}
