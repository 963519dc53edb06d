package extension

// Preset is a named group of extensions used when no categories are configured.
type Preset struct {
	Name       string
	Extensions []string
}

// DefaultCategories is the built-in category preset. No extension appears twice.
var DefaultCategories = []Preset{
	{Name: "Images", Extensions: []string{
		"png", "jpg", "jpeg", "gif", "bmp", "webp", "tif", "tiff", "svg", "ico", "heic", "raw",
	}},
	{Name: "Documents", Extensions: []string{
		"pdf", "doc", "docx", "odt", "rtf", "txt", "md", "rst", "tex",
		"xls", "xlsx", "ods", "ppt", "pptx", "odp", "epub",
	}},
	{Name: "Audio", Extensions: []string{
		"mp3", "wav", "flac", "aac", "ogg", "m4a", "wma", "opus",
	}},
	{Name: "Video", Extensions: []string{
		"mp4", "mkv", "avi", "mov", "wmv", "webm", "flv", "m4v",
	}},
	{Name: "Archives", Extensions: []string{
		"zip", "tar", "gz", "tgz", "bz2", "xz", "7z", "rar", "zst",
	}},
	{Name: "Code", Extensions: []string{
		// Go, JavaScript / TypeScript, Python
		"go", "js", "jsx", "mjs", "ts", "tsx", "py", "pyi",
		// JVM, C family
		"java", "kt", "scala", "c", "h", "cpp", "cc", "hpp", "cs",
		// Others
		"rs", "rb", "php", "swift", "dart", "lua", "sh", "bash", "ps1", "sql",
		"html", "htm", "css", "scss",
	}},
	{Name: "Data", Extensions: []string{
		"json", "yaml", "yml", "toml", "xml", "ini", "csv", "tsv", "parquet", "db", "sqlite",
	}},
}
