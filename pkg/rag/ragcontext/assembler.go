package ragcontext

import "strings"

// Separator between passages in the assembled context.
const Separator = "\n\n"

// Assemble joins ranked passage texts into the context block handed to the
// prompt composer. Order is preserved and nothing is dropped or truncated.
func Assemble(segments []string) string {
	return strings.Join(segments, Separator)
}
