package metering

import "fmt"

// WarningCode identifies a usage warning.
type WarningCode string

const (
	WarnApproachingLimit    WarningCode = "approaching_limit"
	WarnLimitReached        WarningCode = "limit_reached"
	WarnInsufficientCredits WarningCode = "insufficient_credits"
)

// Warning is a user-facing usage notice.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// WarningsFor produces ordered usage warnings for the chat flow:
// approaching-limit exactly when one free message remains, limit-reached once
// the allowance is exceeded, insufficient-credits whenever the balance cannot
// cover the after-allowance cost. Warnings may co-occur.
func (c Config) WarningsFor(messageCount, availableCredits int) []Warning {
	var warnings []Warning

	if messageCount == c.ChatFreeMessages-1 {
		warnings = append(warnings, Warning{
			Code:    WarnApproachingLimit,
			Message: "You have 1 free message remaining in this session",
		})
	}

	if messageCount >= c.ChatFreeMessages {
		warnings = append(warnings, Warning{
			Code:    WarnLimitReached,
			Message: fmt.Sprintf("Free message limit reached; each message now costs %d credit(s)", c.ChatMessageCost),
		})
	}

	if availableCredits < c.ChatMessageCost {
		warnings = append(warnings, Warning{
			Code:    WarnInsufficientCredits,
			Message: "Not enough credits for further messages; purchase more to continue",
		})
	}

	return warnings
}
