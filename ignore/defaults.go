package ignore

// DefaultSkipDirs are directory names never worth organizing: version control
// metadata and OS bookkeeping folders.
var DefaultSkipDirs = []string{
	".git",
	".svn",
	".hg",
	"$RECYCLE.BIN",
	"System Volume Information",
	".Trashes",
	".Spotlight-V100",
	".fseventsd",
}

// DefaultIgnorePatterns are OS metadata files, matched against the base name.
var DefaultIgnorePatterns = []string{
	".DS_Store",
	"._*",
	"Thumbs.db",
	"desktop.ini",
	"*.swp",
	"*~",
}
