package eval

import "github.com/randalmurphal/alertflow/alert"

// Case is one labeled evaluation input.
type Case struct {
	ID          string
	Description string
	Message     string
	Channel     string
	Expect      Expectation
}

// Expectation describes the terminal outcomes a case must produce. Zero
// values mean the outcome must be absent: HasTitle false expects no
// title. LabelsContain is only checked when non-empty, and
// TitleMentionsError only when true.
type Expectation struct {
	IsValidSource      bool
	TicketCreated      bool
	HasTitle           bool
	HasDescription     bool
	HasLabels          bool
	LabelsContain      []string
	TitleMentionsError bool
}

// Input returns the case as an inbound message.
func (c Case) Input() alert.Message {
	return alert.Message{Text: c.Message, Channel: c.Channel}
}

// GoldenCases returns the full golden set.
func GoldenCases() []Case {
	return append([]Case(nil), golden...)
}

// ValidCases returns the cases expected to pass source validation.
func ValidCases() []Case {
	var out []Case
	for _, c := range golden {
		if c.Expect.IsValidSource {
			out = append(out, c)
		}
	}
	return out
}

// InvalidCases returns the cases expected to be rejected.
func InvalidCases() []Case {
	var out []Case
	for _, c := range golden {
		if !c.Expect.IsValidSource {
			out = append(out, c)
		}
	}
	return out
}

var createdComplete = Expectation{
	IsValidSource:  true,
	TicketCreated:  true,
	HasTitle:       true,
	HasDescription: true,
	HasLabels:      true,
	LabelsContain:  []string{"bug", "mobile"},
}

var rejected = Expectation{}

var golden = []Case{
	// Valid Datadog messages.
	{
		ID:          "valid_001",
		Description: "Standard Datadog RUM error alert",
		Message: `Triggered: High number of errors in RUM on @issue.id:e1266418-913a-11ef-b48a-da7ad0900002
High number of errors on issue detected.

undefined is not an object (evaluating 'vm_r3.job.type') : TypeError: undefined is not an object (evaluating 'vm_r3.job.type')
  at executeTemplate @ capacitor://localhost/vendor.js:115793:15
  at refreshView @ capacitor://localhost/vendor.js:117360:22
  at detectChangesInView @ capacitor://localhost/vendor.js:117568:16

@slack-ServiceCore-servicecore-mobile-errors

The count of RUM errors matching service:mobile, grouped by @issue.id, was > 20 during the last 5m.`,
		Channel: alert.DefaultChannel,
		Expect: Expectation{
			IsValidSource:      true,
			TicketCreated:      true,
			HasTitle:           true,
			HasDescription:     true,
			HasLabels:          true,
			LabelsContain:      []string{"bug", "mobile"},
			TitleMentionsError: true,
		},
	},
	{
		ID:          "valid_002",
		Description: "Datadog null reference error",
		Message: `Triggered: High number of errors in RUM on @issue.id:abc123-def456
High number of errors on issue detected.

Cannot read properties of null (reading 'map') : TypeError: Cannot read properties of null (reading 'map')
  at renderList @ capacitor://localhost/main.js:5423:12
  at updateView @ capacitor://localhost/main.js:5500:8

@slack-ServiceCore-servicecore-mobile-errors

The count of RUM errors matching service:mobile, grouped by @issue.id, was > 50 during the last 10m.`,
		Channel: alert.DefaultChannel,
		Expect:  createdComplete,
	},
	{
		ID:          "valid_003",
		Description: "Datadog network error",
		Message: `Triggered: High number of errors in RUM on @issue.id:net-error-789
Network request failed.

NetworkError: Failed to fetch : NetworkError: Failed to fetch
  at fetchData @ capacitor://localhost/api.js:234:10
  at loadUserProfile @ capacitor://localhost/profile.js:45:5

@slack-ServiceCore-servicecore-mobile-errors

The count of RUM errors matching service:mobile, grouped by @issue.id, was > 30 during the last 5m.`,
		Channel: alert.DefaultChannel,
		Expect:  createdComplete,
	},
	{
		ID:          "valid_004",
		Description: "Datadog async/promise error",
		Message: `Triggered: High number of errors in RUM on @issue.id:promise-rejection-001
Unhandled promise rejection detected.

Unhandled Promise Rejection: Request timeout after 30000ms : Error: Request timeout after 30000ms
  at createTimeout @ capacitor://localhost/utils.js:100:15
  at fetchWithTimeout @ capacitor://localhost/api.js:50:20

@slack-ServiceCore-servicecore-mobile-errors

The count of RUM errors matching service:mobile, grouped by @issue.id, was > 25 during the last 5m.`,
		Channel: alert.DefaultChannel,
		Expect:  createdComplete,
	},
	{
		ID:          "valid_005",
		Description: "Datadog memory error",
		Message: `Triggered: High number of errors in RUM on @issue.id:memory-001
Memory allocation failed.

RangeError: Maximum call stack size exceeded : RangeError: Maximum call stack size exceeded
  at recursiveFunction @ capacitor://localhost/utils.js:200:5
  at processData @ capacitor://localhost/data.js:150:10

@slack-ServiceCore-servicecore-mobile-errors

The count of RUM errors matching service:mobile, grouped by @issue.id, was > 15 during the last 5m.`,
		Channel: alert.DefaultChannel,
		Expect:  createdComplete,
	},
	{
		ID:          "valid_006",
		Description: "Datadog syntax error",
		Message: `Triggered: High number of errors in RUM on @issue.id:syntax-error-002
JavaScript syntax error detected.

SyntaxError: Unexpected token '<' : SyntaxError: Unexpected token '<'
  at parseJSON @ capacitor://localhost/utils.js:50:12
  at handleResponse @ capacitor://localhost/api.js:75:8

@slack-ServiceCore-servicecore-mobile-errors

The count of RUM errors matching service:mobile, grouped by @issue.id, was > 40 during the last 5m.`,
		Channel: alert.DefaultChannel,
		Expect:  createdComplete,
	},
	{
		ID:          "valid_007",
		Description: "Datadog authentication error",
		Message: `Triggered: High number of errors in RUM on @issue.id:auth-fail-003
Authentication failure detected.

Error: Token expired or invalid : Error: Token expired or invalid
  at validateToken @ capacitor://localhost/auth.js:120:10
  at checkAuth @ capacitor://localhost/middleware.js:30:5

@slack-ServiceCore-servicecore-mobile-errors

The count of RUM errors matching service:mobile, grouped by @issue.id, was > 100 during the last 5m.`,
		Channel: alert.DefaultChannel,
		Expect:  createdComplete,
	},

	// Messages that must be rejected.
	{
		ID:          "invalid_001",
		Description: "Non-Datadog message in correct channel",
		Message: `Hey team, just a heads up that we're seeing some issues with the mobile app today.
Can someone take a look?

Thanks,
John`,
		Channel: alert.DefaultChannel,
		Expect:  rejected,
	},
	{
		ID:          "invalid_002",
		Description: "Datadog message in wrong channel",
		Message: `Triggered: High number of errors in RUM on @issue.id:wrong-channel-001
Error detected.

TypeError: Cannot read property 'id' of undefined
  at getUser @ capacitor://localhost/user.js:50:10

@slack-ServiceCore-servicecore-mobile-errors

The count of RUM errors matching service:mobile, grouped by @issue.id, was > 20 during the last 5m.`,
		Channel: "general",
		Expect:  rejected,
	},
	{
		ID:          "invalid_003",
		Description: "Random bot message",
		Message: `Daily standup reminder!

Please post your updates in the thread below.
- What did you do yesterday?
- What are you doing today?
- Any blockers?`,
		Channel: alert.DefaultChannel,
		Expect:  rejected,
	},

	// Edge cases.
	{
		ID:          "edge_001",
		Description: "Datadog message with minimal stack trace",
		Message: `Triggered: High number of errors in RUM on @issue.id:minimal-001
Error occurred.

Error: Something went wrong

@slack-ServiceCore-servicecore-mobile-errors

The count of RUM errors matching service:mobile, grouped by @issue.id, was > 10 during the last 5m.`,
		Channel: alert.DefaultChannel,
		Expect:  createdComplete,
	},
	{
		ID:          "edge_002",
		Description: "Datadog message with very long stack trace",
		Message: `Triggered: High number of errors in RUM on @issue.id:long-stack-001
Deep error in component tree.

TypeError: Cannot access property of undefined : TypeError: Cannot access property of undefined
  at level1 @ capacitor://localhost/app.js:1:1
  at level2 @ capacitor://localhost/app.js:2:2
  at level3 @ capacitor://localhost/app.js:3:3
  at level4 @ capacitor://localhost/app.js:4:4
  at level5 @ capacitor://localhost/app.js:5:5
  at level6 @ capacitor://localhost/app.js:6:6
  at level7 @ capacitor://localhost/app.js:7:7
  at level8 @ capacitor://localhost/app.js:8:8
  at level9 @ capacitor://localhost/app.js:9:9
  at level10 @ capacitor://localhost/app.js:10:10
  at level11 @ capacitor://localhost/app.js:11:11
  at level12 @ capacitor://localhost/app.js:12:12
  at level13 @ capacitor://localhost/app.js:13:13
  at level14 @ capacitor://localhost/app.js:14:14
  at level15 @ capacitor://localhost/app.js:15:15
  at level16 @ capacitor://localhost/app.js:16:16
  at level17 @ capacitor://localhost/app.js:17:17
  at level18 @ capacitor://localhost/app.js:18:18
  at level19 @ capacitor://localhost/app.js:19:19
  at level20 @ capacitor://localhost/app.js:20:20
  at level21 @ capacitor://localhost/app.js:21:21
  at level22 @ capacitor://localhost/app.js:22:22
  at level23 @ capacitor://localhost/app.js:23:23
  at level24 @ capacitor://localhost/app.js:24:24
  at level25 @ capacitor://localhost/app.js:25:25

@slack-ServiceCore-servicecore-mobile-errors

The count of RUM errors matching service:mobile, grouped by @issue.id, was > 5 during the last 5m.`,
		Channel: alert.DefaultChannel,
		Expect:  createdComplete,
	},
	{
		ID:          "edge_003",
		Description: "Datadog message with special characters",
		Message: `Triggered: High number of errors in RUM on @issue.id:special-chars-001
Error with special characters.

Error: Invalid character '<script>alert("XSS")</script>' in input : Error: Invalid character
  at sanitize @ capacitor://localhost/utils.js:50:10
  at processInput @ capacitor://localhost/form.js:25:5

@slack-ServiceCore-servicecore-mobile-errors

The count of RUM errors matching service:mobile, grouped by @issue.id, was > 10 during the last 5m.`,
		Channel: alert.DefaultChannel,
		Expect:  createdComplete,
	},
	{
		ID:          "edge_004",
		Description: "Recovered alert (not an error)",
		Message: `Recovered: High number of errors in RUM on @issue.id:recovered-001
The alert has recovered.

@slack-ServiceCore-servicecore-mobile-errors

The count of RUM errors matching service:mobile is now below the threshold.`,
		Channel: alert.DefaultChannel,
		// Recovery notices still carry Datadog markers, so they validate
		// and produce a ticket like any other alert.
		Expect: createdComplete,
	},
}
