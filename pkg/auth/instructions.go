package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowLoginGuide prints what to do when no token can be found
func ShowLoginGuide(w io.Writer, listURL string) {
	line := strings.Repeat("=", 72)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "NO AUTH TOKEN FOUND")
	fmt.Fprintln(w, line)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "hdexport reads the portal session from the browser it drives.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 1: Sign in")
	fmt.Fprintf(w, "   - Open %s in the hdexport browser window\n", listURL)
	fmt.Fprintln(w, "   - Log in with your tax code and password")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 2: Search")
	fmt.Fprintln(w, "   - Pick the invoice type and date range")
	fmt.Fprintln(w, "   - Press search so the result table is visible")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 3: Run the command again, or pass --wait-login to crawl")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The token can also be given directly with --token or HDEXPORT_TOKEN.")
	fmt.Fprintln(w, "It is the value of the 'jwt' cookie on hoadondientu.gdt.gov.vn.")
	fmt.Fprintln(w, line)
}
