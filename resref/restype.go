package resref

// ResType identifies one resource type: a stable 16-bit numeric id
// paired with the file extension used for it on disk. The set is
// closed and fixed by the engine; it is not extensible at runtime.
type ResType struct {
	ID        uint16
	Extension string
	name      string
}

func (t ResType) String() string {
	if t.name != "" {
		return t.name
	}
	return t.Extension
}

// Invalid is the sentinel returned when an extension has no known
// type; it still round-trips through Identity.String using its Extension.
var Invalid = ResType{ID: 0xFFFF, Extension: "", name: "invalid"}

// The table below carries the engine family's resource types: the
// formats the archive, script, and model subsystems implement, plus
// the record extensions external per-record parsers rely on for
// identity resolution. Extending it is a matter of appending entries;
// nothing else in the core hard-codes a type list.
var types = []ResType{
	{ID: 1, Extension: "bmp", name: "Windows BMP"},
	{ID: 2, Extension: "mve", name: "Interplay movie"},
	{ID: 3, Extension: "tga", name: "TGA image"},
	{ID: 4, Extension: "wav", name: "WAV audio"},
	{ID: 5, Extension: "wfx", name: "Wave effect"},
	{ID: 6, Extension: "plt", name: "Palette layer texture"},
	{ID: 7, Extension: "ini", name: "INI config"},
	{ID: 8, Extension: "bmu", name: "BMU audio"},
	{ID: 9, Extension: "mpg", name: "MPEG video"},
	{ID: 10, Extension: "txt", name: "Plain text"},
	{ID: 2000, Extension: "plh", name: "Placeholder"},
	{ID: 2001, Extension: "tex", name: "Texture"},
	{ID: 2002, Extension: "mdl", name: "Model"},
	{ID: 2003, Extension: "thg", name: "Thing"},
	{ID: 2005, Extension: "fnt", name: "Font"},
	{ID: 2007, Extension: "lua", name: "Lua script"},
	{ID: 2008, Extension: "slt", name: "Slot"},
	{ID: 2009, Extension: "nss", name: "Script source"},
	{ID: 2010, Extension: "ncs", name: "Compiled script"},
	{ID: 2011, Extension: "mod", name: "Module capsule"},
	{ID: 2012, Extension: "are", name: "Area"},
	{ID: 2013, Extension: "set", name: "Tileset"},
	{ID: 2014, Extension: "ifo", name: "Module info"},
	{ID: 2015, Extension: "bic", name: "Character"},
	{ID: 2016, Extension: "wok", name: "Walkmesh"},
	{ID: 2017, Extension: "2da", name: "2DA table"},
	{ID: 2018, Extension: "tlk", name: "Talk table"},
	{ID: 2022, Extension: "txi", name: "Texture info"},
	{ID: 2023, Extension: "git", name: "Area instances"},
	{ID: 2024, Extension: "bti", name: "Item blueprint (binary)"},
	{ID: 2025, Extension: "uti", name: "Item blueprint"},
	{ID: 2026, Extension: "btc", name: "Creature blueprint (binary)"},
	{ID: 2027, Extension: "utc", name: "Creature blueprint"},
	{ID: 2029, Extension: "dlg", name: "Dialog"},
	{ID: 2030, Extension: "itp", name: "Palette"},
	{ID: 2031, Extension: "btt", name: "Trigger blueprint (binary)"},
	{ID: 2032, Extension: "utt", name: "Trigger blueprint"},
	{ID: 2033, Extension: "dds", name: "DDS image"},
	{ID: 2034, Extension: "bts", name: "Sound blueprint (binary)"},
	{ID: 2035, Extension: "uts", name: "Sound blueprint"},
	{ID: 2036, Extension: "ltr", name: "Name generator letters"},
	{ID: 2037, Extension: "gff", name: "Generic file format"},
	{ID: 2038, Extension: "fac", name: "Faction"},
	{ID: 2039, Extension: "bte", name: "Encounter blueprint (binary)"},
	{ID: 2040, Extension: "ute", name: "Encounter blueprint"},
	{ID: 2041, Extension: "btd", name: "Door blueprint (binary)"},
	{ID: 2042, Extension: "utd", name: "Door blueprint"},
	{ID: 2043, Extension: "btp", name: "Placeable blueprint (binary)"},
	{ID: 2044, Extension: "utp", name: "Placeable blueprint"},
	{ID: 2045, Extension: "dft", name: "Default values"},
	{ID: 2046, Extension: "gic", name: "Area instance comments"},
	{ID: 2047, Extension: "gui", name: "GUI layout"},
	{ID: 2048, Extension: "css", name: "Client script source"},
	{ID: 2049, Extension: "ccs", name: "Compiled client script"},
	{ID: 2050, Extension: "btm", name: "Store blueprint (binary)"},
	{ID: 2051, Extension: "utm", name: "Store blueprint"},
	{ID: 2052, Extension: "dwk", name: "Door walkmesh"},
	{ID: 2053, Extension: "pwk", name: "Placeable walkmesh"},
	{ID: 2054, Extension: "btg", name: "Generic blueprint (binary)"},
	{ID: 2055, Extension: "utg", name: "Generic blueprint"},
	{ID: 2056, Extension: "jrl", name: "Journal"},
	{ID: 2057, Extension: "sav", name: "Save capsule"},
	{ID: 2058, Extension: "utw", name: "Waypoint blueprint"},
	{ID: 2059, Extension: "4pc", name: "4-bit texture"},
	{ID: 2060, Extension: "ssf", name: "Sound set"},
	{ID: 2061, Extension: "hak", name: "Hak pak capsule"},
	{ID: 2062, Extension: "nwm", name: "Movie module"},
	{ID: 2063, Extension: "bik", name: "Bink video"},
	{ID: 2064, Extension: "ndb", name: "Area notes"},
	{ID: 2065, Extension: "ptm", name: "Plot manager"},
	{ID: 2066, Extension: "ptt", name: "Plot wizard"},
	{ID: 3001, Extension: "lyt", name: "Room layout"},
	{ID: 3002, Extension: "vis", name: "Room visibility"},
	{ID: 3003, Extension: "rim", name: "Resource capsule"},
	{ID: 3004, Extension: "pth", name: "Path grid"},
	{ID: 3005, Extension: "lip", name: "Lip sync"},
	{ID: 3006, Extension: "bwm", name: "Binary walkmesh"},
	{ID: 3007, Extension: "txb", name: "Texture bundle"},
	{ID: 3008, Extension: "tpc", name: "Compressed texture"},
	{ID: 3010, Extension: "mdx", name: "Model extension data"},
	{ID: 9996, Extension: "erf", name: "Encapsulated resource file"},
	{ID: 9997, Extension: "bif", name: "Keyed data archive"},
	{ID: 9998, Extension: "key", name: "Keyed archive index"},
}

var byExtension map[string]ResType
var byID map[uint16]ResType

func init() {
	byExtension = make(map[string]ResType, len(types))
	byID = make(map[uint16]ResType, len(types))
	for _, t := range types {
		byExtension[t.Extension] = t
		byID[t.ID] = t
	}
}

// TypeByExtension looks up a ResType by its lowercase file extension.
// The boolean result reports whether the extension is known.
func TypeByExtension(ext string) (ResType, bool) {
	t, ok := byExtension[ext]
	return t, ok
}

// TypeByID looks up a ResType by its numeric id.
func TypeByID(id uint16) (ResType, bool) {
	t, ok := byID[id]
	return t, ok
}
