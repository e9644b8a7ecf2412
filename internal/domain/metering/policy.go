package metering

// Action is an application-level metered action.
type Action string

const (
	ActionChatMessage    Action = "chat_message"
	ActionGenerateForm   Action = "generate_form"
	ActionPublishForm    Action = "publish_form"
	ActionExtraQuestions Action = "extra_questions"
)

// Config maps actions to credit costs. It is constructed once from the
// environment and passed in explicitly; there is no process-wide state.
type Config struct {
	// ChatFreeMessages is the number of free chat messages per session.
	ChatFreeMessages int
	// ChatMessageCost is the per-message cost once the allowance is spent.
	ChatMessageCost int
	// GenerateCost is the flat cost of an AI form generation.
	GenerateCost int
	// PublishCost is the flat cost of publishing a form.
	PublishCost int
	// ExtraQuestionsCost is the flat cost of a 10-question pack.
	ExtraQuestionsCost int
	// SignupBonus is granted on first balance access.
	SignupBonus int
}

// DefaultConfig returns the illustrative default pricing.
func DefaultConfig() Config {
	return Config{
		ChatFreeMessages:   5,
		ChatMessageCost:    1,
		GenerateCost:       3,
		PublishCost:        1,
		ExtraQuestionsCost: 2,
		SignupBonus:        10,
	}
}

// Context carries per-request metering inputs.
type Context struct {
	// MessageCount is the number of chat messages already sent this session.
	MessageCount int
}

// CostOf computes the credit cost of an action. Pure: no side effects, no
// I/O; the caller is responsible for the actual debit.
func (c Config) CostOf(action Action, ctx Context) int {
	switch action {
	case ActionChatMessage:
		if ctx.MessageCount < c.ChatFreeMessages {
			return 0
		}
		return c.ChatMessageCost
	case ActionGenerateForm:
		return c.GenerateCost
	case ActionPublishForm:
		return c.PublishCost
	case ActionExtraQuestions:
		return c.ExtraQuestionsCost
	default:
		return 0
	}
}
