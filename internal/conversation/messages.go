package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/julianstephens/habitbot/internal/models"
)

// Menu button labels
const (
	ButtonAddHabit    = "➕ Add habit"
	ButtonMyHabits    = "📋 My habits"
	ButtonMarkDone    = "✅ Mark done"
	ButtonStats       = "📊 Statistics"
	ButtonAdvice      = "💡 AI advice"
	ButtonDeleteHabit = "🗑 Delete habit"
	ButtonCancel      = "❌ Cancel"
)

// Callback data prefixes for inline habit choices
const (
	callbackMark   = "mark_"
	callbackAdvice = "advice_"
	callbackDelete = "delete_"
	callbackCancel = "cancel"
)

const (
	textWelcome = "Hi, %s! 👋\n\n" +
		"I will help you keep track of your habits.\n" +
		"Use the menu below to add a habit, mark it done, check your statistics or ask for advice."

	textHelp = "Commands:\n" +
		"/start - show the main menu\n" +
		"/help - show this message\n" +
		"/cancel - abort the current action\n\n" +
		"Add a habit with \"" + ButtonAddHabit + "\", then mark it with \"" + ButtonMarkDone + "\" " +
		"whenever you complete it. \"" + ButtonStats + "\" shows how often you followed through."

	textUnknown      = "I did not understand that. Please use the menu below. 🙂"
	textCancelled    = "Cancelled."
	textAskName      = "Enter the habit name (for example: Drink water):"
	textAskPeriod    = "How often do you want to do \"%s\"? (for example: daily, 3 times a week)"
	textEmptyName    = "The habit name cannot be empty. Try again or press Cancel."
	textEmptyPeriod  = "The period cannot be empty. Try again or press Cancel."
	textHabitAdded   = "Habit \"%s\" added (%s). ✅"
	textNoHabits     = "You have no habits yet. Add one with \"" + ButtonAddHabit + "\"."
	textChooseMark   = "Which habit did you complete? Tap it or send its number."
	textChooseAdvice = "Which habit do you want advice on?"
	textChooseDelete = "Which habit do you want to delete? Its history is removed as well."
	textNotOffered   = "Please pick one of the listed habits, or press Cancel."
	textExpired      = "This choice is no longer active. Open the menu again."
	textMarked       = "Marked \"%s\" as done for %s. 💪"
	textDeleted      = "Habit \"%s\" deleted."
	textAdviceHeader = "💡 Advice for \"%s\":\n\n%s"
	textInternal     = "Something went wrong on our side. Please try again later."
)

// MainMenu is the reply keyboard shown when no flow is active
func MainMenu() *Keyboard {
	return &Keyboard{Rows: [][]Button{
		{{Text: ButtonAddHabit}, {Text: ButtonMyHabits}},
		{{Text: ButtonMarkDone}, {Text: ButtonStats}},
		{{Text: ButtonAdvice}, {Text: ButtonDeleteHabit}},
	}}
}

func cancelMenu() *Keyboard {
	return &Keyboard{Rows: [][]Button{{{Text: ButtonCancel}}}}
}

// habitChoices offers one inline button per habit plus a cancel button
func habitChoices(habits []models.Habit, prefix string) *Keyboard {
	rows := make([][]Button, 0, len(habits)+1)
	for _, h := range habits {
		rows = append(rows, []Button{{
			Text: fmt.Sprintf("%d. %s", h.ID, h.Name),
			Data: prefix + strconv.FormatInt(h.ID, 10),
		}})
	}
	rows = append(rows, []Button{{Text: ButtonCancel, Data: callbackCancel}})
	return &Keyboard{Rows: rows, Inline: true}
}

func habitIDs(habits []models.Habit) []int64 {
	ids := make([]int64, len(habits))
	for i, h := range habits {
		ids[i] = h.ID
	}
	return ids
}

func formatHabits(habits []models.Habit) string {
	var b strings.Builder
	b.WriteString("Your habits:\n")
	for _, h := range habits {
		fmt.Fprintf(&b, "\n%d. %s (%s)", h.ID, h.Name, h.Period)
	}
	return b.String()
}

func formatStats(summaries []models.HabitSummary) string {
	var b strings.Builder
	b.WriteString("📊 Your statistics:\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "\n%s: %d of %d", s.Habit.Name, s.Stats.Done, s.Stats.Total)
		if s.Stats.Total > 0 {
			fmt.Fprintf(&b, " (%.2f%%)", s.Stats.Ratio())
		}
	}
	return b.String()
}

// parseChoice reads a habit id from typed text or from callback data with the given prefix
func parseChoice(s, prefix string) (int64, bool) {
	s = strings.TrimSpace(s)
	if prefix != "" {
		if !strings.HasPrefix(s, prefix) {
			return 0, false
		}
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimPrefix(s, "#")
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
