package hubspot

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Agent is one of the four sales agents a card can route to.
type Agent struct {
	Key         string
	Name        string
	Description string
	Icon        string
}

var agents = map[string]Agent{
	"scout":  {Key: "scout", Name: "Scout", Description: "Research & Intelligence", Icon: "🔍"},
	"writer": {Key: "writer", Name: "Writer", Description: "Sales Copy & Content", Icon: "✍️"},
	"rep":    {Key: "rep", Name: "Rep", Description: "Outreach & Engagement", Icon: "📧"},
	"closer": {Key: "closer", Name: "Closer", Description: "Deals & Revenue", Icon: "🎯"},
}

// Recommendation is an agent action suggested for a CRM record.
type Recommendation struct {
	Agent       string
	Action      string
	Description string
	Path        string
}

var (
	executiveTitle = regexp.MustCompile(`ceo|cto|cfo|coo|vp|director|head|chief`)

	contactActions = []Recommendation{
		{"scout", "Research Contact", "Deep dive on this contact and their company", "/agents?agent=scout&action=research"},
		{"writer", "Write Cold Email", "Personalized outreach email", "/agents?agent=writer&action=cold-email"},
		{"rep", "Create Sequence", "Multi-touch outreach sequence", "/agents?agent=rep&action=sequence"},
	}
	executiveAction = Recommendation{"writer", "Executive Email", "C-suite appropriate messaging", "/free-tools/tonalities/executive-briefing"}

	// stageBuckets is checked in order; the first bucket with a keyword
	// contained in the lowercased stage wins.
	stageBuckets = []struct {
		keywords []string
		actions  []Recommendation
	}{
		{[]string{"appointment", "scheduled", "qualified"}, []Recommendation{
			{"scout", "Account Research", "Company intel and buying signals", "/agents?agent=scout"},
			{"writer", "Discovery Questions", "SPIN-based discovery framework", "/methodology/spin-selling"},
			{"rep", "Meeting Prep Email", "Confirm and set agenda", "/agents?agent=rep&action=meeting-prep"},
		}},
		{[]string{"presentation", "demo", "decision"}, []Recommendation{
			{"writer", "Demo Follow-up", "Post-demo email with next steps", "/agents?agent=writer&action=followup"},
			{"closer", "MEDDPICC Check", "Qualification assessment", "/methodology/meddic"},
			{"writer", "ROI Business Case", "Build value justification", "/agents?agent=writer&action=business-case"},
		}},
		{[]string{"proposal", "contract", "negotiation"}, []Recommendation{
			{"closer", "Write Proposal", "Generate deal proposal", "/agents?agent=closer&action=proposal"},
			{"closer", "Handle Objections", "Price and competitor responses", "/free-tools/tonalities/chris-voss"},
			{"writer", "Urgency Email", "Create timeline pressure", "/agents?agent=writer&action=urgency"},
		}},
		{[]string{"closed", "won"}, []Recommendation{
			{"rep", "Onboarding Kickoff", "Welcome and next steps email", "/agents?agent=rep&action=onboarding"},
			{"scout", "Expansion Research", "Find upsell opportunities", "/agents?agent=scout&action=expansion"},
		}},
	}

	defaultActions = []Recommendation{
		{"scout", "Research Account", "Get intel on this deal", "/agents?agent=scout"},
		{"writer", "Write Follow-up", "Re-engage the prospect", "/agents?agent=writer&action=followup"},
		{"closer", "Deal Strategy", "Plan your close approach", "/agents?agent=closer"},
	}
)

const maxContactActions = 4

// Recommend picks agent actions for a record.  Contacts get outreach
// actions (executives first get an executive email); deals are bucketed by
// stage keyword.
func Recommend(objectType, dealStage, jobTitle string) []Recommendation {
	if strings.EqualFold(objectType, ObjectContact) {
		out := make([]Recommendation, 0, maxContactActions)
		if executiveTitle.MatchString(strings.ToLower(jobTitle)) {
			out = append(out, executiveAction)
		}
		out = append(out, contactActions...)
		if len(out) > maxContactActions {
			out = out[:maxContactActions]
		}
		return out
	}

	stage := strings.ToLower(dealStage)
	for _, b := range stageBuckets {
		for _, kw := range b.keywords {
			if strings.Contains(stage, kw) {
				return append([]Recommendation(nil), b.actions...)
			}
		}
	}
	return append([]Recommendation(nil), defaultActions...)
}

/*──────────────────────────── card payload ────────────────────────────────*/

const (
	ObjectDeal    = "DEAL"
	ObjectContact = "CONTACT"
)

// CardRequest is the context HubSpot sends when rendering a sidebar card.
type CardRequest struct {
	UserID     int64
	UserEmail  string
	ObjectID   int64
	ObjectType string
	PortalID   int64
	DealStage  string
	DealAmount *float64
	DealName   string
	Email      string
	FirstName  string
	LastName   string
	Company    string
	JobTitle   string
}

// ParseCardRequest reads the query HubSpot attaches to card fetches.
// Unparsable numbers read as zero.
func ParseCardRequest(q url.Values) CardRequest {
	req := CardRequest{
		UserID:     parseInt(q.Get("userId")),
		UserEmail:  q.Get("userEmail"),
		ObjectID:   parseInt(q.Get("associatedObjectId")),
		ObjectType: q.Get("associatedObjectType"),
		PortalID:   parseInt(q.Get("portalId")),
		DealStage:  q.Get("dealStage"),
		DealName:   q.Get("dealName"),
		Email:      q.Get("email"),
		FirstName:  q.Get("firstname"),
		LastName:   q.Get("lastname"),
		Company:    q.Get("company"),
		JobTitle:   q.Get("jobtitle"),
	}
	if req.ObjectType == "" {
		req.ObjectType = ObjectDeal
	}
	if v, err := strconv.ParseFloat(q.Get("dealAmount"), 64); err == nil {
		req.DealAmount = &v
	}
	return req
}

type Card struct {
	Results       []CardResult `json:"results"`
	PrimaryAction CardAction   `json:"primaryAction"`
}

type CardResult struct {
	ObjectID int64         `json:"objectId"`
	Title    string        `json:"title"`
	Link     string        `json:"link"`
	Sections []CardSection `json:"sections"`
}

type CardSection struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Rows  []CardRow `json:"rows"`
}

type CardRow struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	LinkURL string `json:"linkUrl"`
}

type CardAction struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URI    string `json:"uri"`
	Label  string `json:"label"`
}

var team = []struct{ key, text string }{
	{"scout", "🔍 Scout - Research"},
	{"writer", "✍️ Writer - Copy"},
	{"rep", "📧 Rep - Outreach"},
	{"closer", "🎯 Closer - Deals"},
}

// BuildCard renders the sidebar card for req.  siteURL is the public origin
// every link points back to.
func BuildCard(siteURL string, req CardRequest) Card {
	siteURL = strings.TrimRight(siteURL, "/")
	portal := strconv.FormatInt(req.PortalID, 10)

	recs := Recommend(req.ObjectType, req.DealStage, req.JobTitle)
	rows := make([]CardRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, CardRow{
			Type: "LINK",
			Text: agents[rec.Agent].Icon + " " + rec.Action,
			LinkURL: withQuery(siteURL+rec.Path, url.Values{
				"utm_source": {"hubspot"},
				"utm_medium": {"crm-card"},
				"portal":     {portal},
			}),
		})
	}

	title := "📧 Outreach Actions"
	if !strings.EqualFold(req.ObjectType, ObjectContact) {
		stage := req.DealStage
		if stage == "" {
			stage = "Deal"
		}
		title = "🎯 " + stage + " Actions"
	}

	teamRows := make([]CardRow, 0, len(team))
	for _, t := range team {
		teamRows = append(teamRows, CardRow{
			Type:    "LINK",
			Text:    t.text,
			LinkURL: siteURL + "/api/v1/agents/" + t.key + "/skill?utm_source=hubspot",
		})
	}

	embed := url.Values{
		"objectType": {req.ObjectType},
		"objectId":   {strconv.FormatInt(req.ObjectID, 10)},
		"stage":      {req.DealStage},
		"portalId":   {portal},
	}

	return Card{
		Results: []CardResult{{
			ObjectID: req.ObjectID,
			Title:    "GTM Skills",
			Link:     siteURL + "/agents?utm_source=hubspot",
			Sections: []CardSection{
				{ID: "agents", Title: title, Rows: rows},
				{ID: "team", Title: "👥 Your Sales Team", Rows: teamRows},
			},
		}},
		PrimaryAction: CardAction{
			Type:   "IFRAME",
			Width:  890,
			Height: 748,
			URI:    siteURL + "/embed/hubspot?" + embed.Encode(),
			Label:  "Open GTM Skills",
		},
	}
}

// withQuery merges extra into the query string of raw.  raw is one of the
// fixed action paths, so a parse failure falls back to plain appending.
func withQuery(raw string, extra url.Values) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw + "?" + extra.Encode()
	}
	q := u.Query()
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
