// internal/browser/script.go
package browser

import (
	"fmt"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/workd-cli/internal/portal"
)

// nodesExpr returns a JavaScript expression evaluating to an array of the
// elements matching loc, in document order.
func nodesExpr(loc portal.Locator) (string, error) {
	query, err := json.MarshalToString(loc.Query)
	if err != nil {
		return "", fmt.Errorf("failed to encode locator %s: %w", loc, err)
	}
	if loc.By == portal.ByXPath {
		return fmt.Sprintf(`(() => {
	const snap = document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	const out = [];
	for (let i = 0; i < snap.snapshotLength; i++) out.push(snap.snapshotItem(i));
	return out;
})()`, query), nil
	}
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%s))`, query), nil
}

func existsExpr(loc portal.Locator) (string, error) {
	nodes, err := nodesExpr(loc)
	if err != nil {
		return "", err
	}
	return nodes + `.length > 0`, nil
}

func rowsExpr(loc portal.Locator) (string, error) {
	nodes, err := nodesExpr(loc)
	if err != nil {
		return "", err
	}
	return nodes + `.map(row => Array.from(row.querySelectorAll("td")).map(cell => cell.textContent))`, nil
}

func removeExpr(loc portal.Locator) (string, error) {
	nodes, err := nodesExpr(loc)
	if err != nil {
		return "", err
	}
	return `((nodes) => { nodes.forEach(n => n.remove()); return nodes.length; })(` + nodes + `)`, nil
}
