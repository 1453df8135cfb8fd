// Global database config.
package config

// Name of the database.
const DBName = "dinodb"

// Prompt printed by REPL.
const Prompt = DBName + "> "

// The maximum number of pages that can be in the pager's buffer at once.
const MaxPagesInBuffer = 32

// Name of log file.
const LogFileName = "db.log"

// DefaultHeaderMaxDepth bounds the number of top hash bits the header page
// fans out on. Kept small enough that 2^depth PageID slots plus the depth
// field still fit on one page (see hash.MaxHeaderSlots).
const DefaultHeaderMaxDepth int64 = 9

// DefaultDirectoryMaxDepth bounds a directory page's global depth. Same page
// size constraint as DefaultHeaderMaxDepth applies, but a directory page also
// stores a local depth byte per slot alongside the page id.
const DefaultDirectoryMaxDepth int64 = 9

// Return prompt if requested, else "".
func GetPrompt(flag bool) string {
	if flag {
		return Prompt
	}
	return ""
}
