package game

import "fmt"

// Visibility controls what a snapshot reveals about other players' hands.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"   // every hand visible to every viewer
	VisibilityOwnHand Visibility = "own-hand" // other hands reduced to a count
)

// Valid reports whether v is a known policy.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityOwnHand
}

// HouseRules are per-room settings the host may change before the game starts.
type HouseRules struct {
	TurnTimerSec   int        `json:"turnTimerSec"`   // 0 disables the turn timer
	HandSize       int        `json:"handSize"`       // cards held after a refill
	HandVisibility Visibility `json:"handVisibility"` // public or own-hand
}

// DefaultHouseRules: no timer, three cards, hands visible.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		TurnTimerSec:   0,
		HandSize:       3,
		HandVisibility: VisibilityPublic,
	}
}

// Update will update the house rules with the new rules provided.
// If a rule is not set or defined, it will be ignored, and the old value will persist.
func (rules *HouseRules) Update(newRules map[string]interface{}) error {
	assignInt := func(field *int, key string, minVal int) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		var n int
		switch v := val.(type) {
		case float64: // JSON numbers
			n = int(v)
		case int:
			n = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if n < minVal {
			return fmt.Errorf("%s must be at least %d", key, minVal)
		}
		*field = n
		return nil
	}

	if err := assignInt(&rules.TurnTimerSec, "turnTimerSec", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.HandSize, "handSize", 1); err != nil {
		return err
	}
	if val, exists := newRules["handVisibility"]; exists && val != nil {
		s, ok := val.(string)
		if !ok || !Visibility(s).Valid() {
			return fmt.Errorf("invalid handVisibility %v", val)
		}
		rules.HandVisibility = Visibility(s)
	}
	return nil
}

// ParseRules applies a rules map on top of current and returns the result.
// current is left untouched on error.
func ParseRules(rules map[string]interface{}, current HouseRules) (HouseRules, error) {
	houseRules := current
	if err := houseRules.Update(rules); err != nil {
		return current, err
	}
	return houseRules, nil
}
