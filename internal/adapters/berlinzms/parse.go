package berlinzms

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"golang.org/x/net/html"
)

// ParseAppointmentDates extrait les jours réservables d'une page calendrier.
//
// Un jour réservable est un <td class="buchbar"> contenant un lien dont le
// dernier segment de chemin est un timestamp unix, ex: /terminvereinbarung/termin/time/1700000000/.
func ParseAppointmentDates(r io.Reader) (domain.SlotSet, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, &FetchError{Code: CodeParse, Message: "invalid html", Err: err}
	}

	var out []time.Time
	var perr error
	var walk func(n *html.Node, inBookable bool)
	walk = func(n *html.Node, inBookable bool) {
		if perr != nil {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "td" && hasClass(n, "buchbar"):
				inBookable = true
			case n.Data == "a" && inBookable:
				href, ok := attr(n, "href")
				if !ok {
					perr = &FetchError{Code: CodeParse, Message: "appointment link without href"}
					return
				}
				t, err := timestampFromHref(href)
				if err != nil {
					perr = err
					return
				}
				out = append(out, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBookable)
		}
	}
	walk(doc, false)
	if perr != nil {
		return nil, perr
	}
	return domain.NewSlotSet(out...), nil
}

func timestampFromHref(href string) (time.Time, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(href), "/")
	last := trimmed[strings.LastIndex(trimmed, "/")+1:]
	t, err := parseUnix(last)
	if err != nil {
		return time.Time{}, &FetchError{Code: CodeParse, Message: fmt.Sprintf("unexpected appointment link %q", href), Err: err}
	}
	return t, nil
}

func hasClass(n *html.Node, class string) bool {
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
