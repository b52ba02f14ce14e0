package news

import "time"

const dateLayout = "2006-01-02"

// Window is an inclusive range of calendar dates in provider format.
type Window struct {
	From string
	To   string
}

// LookbackWindow returns the `days` calendar dates ending on the UTC date of now.
func LookbackWindow(now time.Time, days int) Window {
	if days < 1 {
		days = 1
	}
	to := now.UTC()
	from := to.AddDate(0, 0, -(days - 1))
	return Window{From: from.Format(dateLayout), To: to.Format(dateLayout)}
}
