package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide prints how to copy the site session cookie
// out of a logged-in browser
func ShowCookieExtractionGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "SESSION COOKIE GUIDE")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The scanner opens the faction roster as you. It needs the cookies of a")
	fmt.Fprintln(w, "logged-in browser session with access to the member list.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Log in to the site and open the faction roster page.")
	fmt.Fprintln(w, "2. Press F12 (Cmd+Option+I on Mac) and open the Network tab.")
	fmt.Fprintln(w, "3. Refresh the page and click the first request to the site.")
	fmt.Fprintln(w, "4. Under Request Headers copy the whole value of the Cookie: line.")
	fmt.Fprintln(w, "5. Paste it when asked. Format: name=value; name2=value2")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The cookie domain is the host of the roster page, e.g. .example.com")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "WARNING: these cookies give full access to your account. They are kept")
	fmt.Fprintln(w, "in the system keychain or an encrypted file and never written to logs.")
	fmt.Fprintln(w, rule)
}

// ShowQuickExtractGuide prints a one-line reminder
func ShowQuickExtractGuide(w io.Writer) {
	fmt.Fprintln(w, "F12 → Network → refresh → first request → Request Headers → Cookie")
	fmt.Fprintln(w, "Type 'help' for detailed instructions")
}
