package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowAppRegistrationGuide explains how to obtain a client id and secret
func ShowAppRegistrationGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "REDDIT APP CREDENTIALS")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "This tool reads public Reddit data through the official API, which")
	fmt.Fprintln(w, "needs the id and secret of an application registered to your account.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Open https://www.reddit.com/prefs/apps while logged in")
	fmt.Fprintln(w, "2. Click \"create another app...\" at the bottom")
	fmt.Fprintln(w, "3. Pick the \"script\" type, any name, and http://localhost as redirect uri")
	fmt.Fprintln(w, "4. The client id is the short string under the app name")
	fmt.Fprintln(w, "5. The secret is shown next to \"secret\"")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "You can also export %s and %s instead of storing them.\n", EnvClientID, EnvClientSecret)
	fmt.Fprintln(w, rule)
}
