package bind

import (
	"fmt"
	"strings"
)

// Module renders a complete binding source file: the project includes, the
// pybind11 preamble and a single PYBIND11_MODULE block holding fragments in
// order.
func Module(name string, headers, fragments []string) string {
	var b strings.Builder

	for _, h := range headers {
		fmt.Fprintf(&b, "#include <%s>\n", h)
	}

	if len(headers) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("#include <pybind11/pybind11.h>\n\n")
	b.WriteString("namespace py = pybind11;\n")
	b.WriteString("using namespace py::literals;\n\n")
	fmt.Fprintf(&b, "PYBIND11_MODULE(%s, m) {\n", name)

	for _, frag := range fragments {
		for line := range strings.SplitSeq(frag, "\n") {
			b.WriteString(memberIndent)
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("}\n")

	return b.String()
}
