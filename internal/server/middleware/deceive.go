package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/perchhub/perch/internal/observability"
	"github.com/perchhub/perch/internal/response"
)

// Path signatures of common vulnerability scanners. Teapot-class and
// forbidden-class entries match as prefixes; bad-request-class entries match
// exactly.

var teapotPaths = []string{
	"/wp-login.php",
	"/wp-admin",
	"/wp-admin/setup-config.php",
	"/wordpress/wp-admin/setup-config.php",
	"/wp-content/",
	"/wp-includes/",
	"/wp-json/",
	"/xmlrpc.php",
	"/wp-config.php",
	"/wp-config.php.bak",
	"/wp-config.php.old",
	"/wp-config.php.save",
	"/wp-config-sample.php",
	"/wp-cron.php",
	"/wp-mail.php",
	"/wp-trackback.php",
	"/readme.html",
	"/license.txt",
	"/wp-activate.php",
	"/wp-comments-post.php",
	"/wp-links-opml.php",
	"/wp-load.php",
	"/wp-settings.php",
	"/wp-signup.php",
	"/wp-blog-header.php",
	"/plugins/",
	"/themes/",
	"/uploads/",
	"/phpinfo.php",
	"/phpmyadmin/",
}

var forbiddenPaths = []string{
	"/admin",
	"/admin/",
	"/admin/login",
	"/admin.php",
	"/admin.html",
	"/administrator",
	"/administrator/",
	"/admin-login",
	"/login",
	"/logon",
	"/login.php",
	"/login.html",
	"/register",
	"/signup",
	"/dashboard",
	"/.env",
	"/.git/config",
	"/.git",
	"/.svn",
	"/.htaccess",
	"/.idea",
	"/.vscode",
	"/.gitignore",
}

var badRequestPaths = map[string]struct{}{
	"/config":                      {},
	"/config.php":                  {},
	"/conf":                        {},
	"/database":                    {},
	"/database_backup":             {},
	"/backup":                      {},
	"/backup.zip":                  {},
	"/api":                         {},
	"/api/login":                   {},
	"/api/v1":                      {},
	"/api/v1/login":                {},
	"/api/user":                    {},
	"/api/users":                   {},
	"/api/admin":                   {},
	"/api/auth":                    {},
	"/rest":                        {},
	"/rest/login":                  {},
	"/private":                     {},
	"/secure":                      {},
	"/.well-known/security.txt":    {},
	"/.well-known/change-password": {},
	"/.well-known/apple-app-site-association": {},
	"/server-status": {},
	"/status":        {},
	"/server-info":   {},
	"/error":         {},
	"/errors":        {},
	"/403":           {},
	"/404":           {},
	"/500":           {},
	"/401":           {},
}

var taunts = []string{
	"My server is more secure than your script is clever. Try again, maybe after learning to code.",
	"Congratulations, you've found the 'waste your time' endpoint.",
	"Your automated scanner is bad and you should feel bad.",
	"You probe like a script kiddie with broken fingers.",
	"Try hacking something your own size, champ.",
	"Wow. Such scan. Very bot. Much blocked.",
	"If stupidity were a crime, your IP would be in jail.",
	"You call that an exploit? My grandma could write better malware.",
	"Your requests are like your skills — rejected.",
	"I don't speak bot. Try English next time.",
	"Keep poking. Maybe you'll find a vulnerability in your own ego.",
	"The only thing you've penetrated is the rate limit.",
	"Access denied. You're not even worth logging.",
	"My firewall does more thinking than your entire script.",
	"Bot detected. Intelligence not detected.",
	"404: Your skills not found.",
	"Error: Brain not initialized.",
	"Try again in your next life.",
	"Scanning? You're just embarrassing yourself.",
	"I've seen toddlers write better attack scripts.",
	"The only thing you're exploiting is your own incompetence.",
	"Even my 404 page is smarter than your crawler.",
	"AI called — it wants you to stop.",
}

var teapotTaunts = []string{
	"This isn't WordPress, it's worse — it's Go.",
	"Looking for WordPress? You must be lost. This is a real server.",
	"Did you really think you'd find a wp-login.php here? How quaint.",
	"Is that a vulnerability scanner or are you just happy to see my 418 response?",
	"Crawling /wp-content? You must be new here.",
	"418: I'm a teapot, and you're a fool.",
	"418: We serve real humans here.",
	"418: Teapot protocol engaged. No coffee for you.",
	"418: Brew yourself some skills first.",
	"418: Hot water, no mercy.",
	"418: Attack rejected. Tea is sacred.",
}

// plainOdds is the probability of answering a matched scanner path with the
// terse canned message instead of a taunt, so the split between the two
// denies scanners a constant fingerprint.
const plainOdds = 0.1

// Deceiver terminates requests whose paths match known attack-tool
// signatures with theatrical responses that waste a scanner's time without
// revealing real behavior.
type Deceiver struct {
	rand    Rand
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewDeceiver builds the stage with the given random source.
func NewDeceiver(rand Rand, logger *zap.Logger, metrics *observability.Metrics) *Deceiver {
	return &Deceiver{rand: rand, logger: logger, metrics: metrics}
}

// Middleware implements the stage.
func (d *Deceiver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if isExempt(path) {
			next.ServeHTTP(w, r)
			return
		}

		switch {
		case matchPrefix(teapotPaths, path):
			d.reject(w, r, http.StatusTeapot, teapotTaunts, func() { response.ImATeapot(w) })
		case matchPrefix(forbiddenPaths, path):
			d.reject(w, r, http.StatusForbidden, taunts, func() { response.Forbidden(w) })
		default:
			if _, ok := badRequestPaths[path]; ok {
				d.count(http.StatusBadRequest)
				d.logger.Debug("deceived scanner path",
					zap.String("path", path),
					zap.Int("status", http.StatusBadRequest))
				response.BadRequest(w)
				return
			}
			next.ServeHTTP(w, r)
		}
	})
}

func (d *Deceiver) reject(w http.ResponseWriter, r *http.Request, status int, pool []string, plain func()) {
	d.count(status)
	d.logger.Debug("deceived scanner path",
		zap.String("path", r.URL.Path),
		zap.Int("status", status))

	if d.rand.Float64() < plainOdds {
		plain()
		return
	}
	response.Error(w, status, pool[d.rand.Intn(len(pool))])
}

func (d *Deceiver) count(status int) {
	if d.metrics != nil {
		d.metrics.RejectionsTotal.WithLabelValues("deceive", strconv.Itoa(status)).Inc()
	}
}

func matchPrefix(prefixes []string, path string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
