package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Week lists the plan days in output order.
var Week = []string{"saturday", "sunday", "monday", "tuesday", "wednesday", "thursday", "friday"}

// MealTimes lists the slots every plan day must have.
var MealTimes = []string{"breakfast", "lunch", "dinner"}

// MealItem is one suggested food inside a meal slot.
type MealItem struct {
	FoodTitle    string          `json:"food_title"`
	FoodID       json.RawMessage `json:"food_id"`
	FoodSymptoms []string        `json:"food_symptoms"`
}

// Meal is a named slot and its raw item list, kept verbatim so that caller
// supplied values survive a round trip.
type Meal struct {
	Time  string
	Items json.RawMessage
}

// Day is one plan entry. Raw is set instead of Meals when the value is not
// a JSON object; it is echoed back unchanged.
type Day struct {
	Name  string
	Meals []Meal
	Raw   json.RawMessage
}

// MealPlan is a day -> slot -> items mapping that preserves key order.
type MealPlan struct {
	Days []Day
}

var errNotObject = errors.New("expected a JSON object")

func (p *MealPlan) UnmarshalJSON(data []byte) error {
	var days []Day
	index := map[string]int{}
	err := decodeObject(data, func(name string, value json.RawMessage) error {
		day := Day{Name: name}
		var meals []Meal
		mealIndex := map[string]int{}
		err := decodeObject(value, func(slot string, items json.RawMessage) error {
			var buf bytes.Buffer
			if err := json.Compact(&buf, items); err != nil {
				return err
			}
			if i, ok := mealIndex[slot]; ok {
				meals[i].Items = buf.Bytes()
				return nil
			}
			mealIndex[slot] = len(meals)
			meals = append(meals, Meal{Time: slot, Items: buf.Bytes()})
			return nil
		})
		switch {
		case errors.Is(err, errNotObject):
			var buf bytes.Buffer
			if err := json.Compact(&buf, value); err != nil {
				return err
			}
			day.Raw = buf.Bytes()
		case err != nil:
			return err
		default:
			if meals == nil {
				meals = []Meal{}
			}
			day.Meals = meals
		}

		if i, ok := index[name]; ok {
			days[i] = day
			return nil
		}
		index[name] = len(days)
		days = append(days, day)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to decode meal plan: %w", err)
	}
	p.Days = days
	return nil
}

func (p MealPlan) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, day := range p.Days {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, day.Name); err != nil {
			return nil, err
		}
		if day.Meals == nil && day.Raw != nil {
			buf.Write(day.Raw)
			continue
		}
		buf.WriteByte('{')
		for j, meal := range day.Meals {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, meal.Time); err != nil {
				return nil, err
			}
			if len(meal.Items) == 0 {
				buf.WriteString("null")
			} else {
				buf.Write(meal.Items)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Lookup returns the raw items stored at plan[day][mealTime].
func (p MealPlan) Lookup(day, mealTime string) (json.RawMessage, bool) {
	for _, d := range p.Days {
		if d.Name != day {
			continue
		}
		for _, m := range d.Meals {
			if m.Time == mealTime {
				return m.Items, true
			}
		}
		return nil, false
	}
	return nil, false
}

// Replace returns a copy of the plan with plan[day][mealTime] set to items.
// The receiver is not modified.
func (p MealPlan) Replace(day, mealTime string, items json.RawMessage) MealPlan {
	out := MealPlan{Days: make([]Day, len(p.Days))}
	for i, d := range p.Days {
		cp := Day{Name: d.Name, Raw: d.Raw}
		if d.Meals != nil {
			cp.Meals = make([]Meal, len(d.Meals))
			copy(cp.Meals, d.Meals)
		}
		if d.Name == day {
			for j := range cp.Meals {
				if cp.Meals[j].Time == mealTime {
					cp.Meals[j].Items = items
				}
			}
		}
		out.Days[i] = cp
	}
	return out
}

// Validate checks that every day of the week has every slot, each holding
// exactly two well-formed items.
func (p MealPlan) Validate() error {
	for _, day := range Week {
		for _, slot := range MealTimes {
			items, ok := p.Lookup(day, slot)
			if !ok {
				return fmt.Errorf("missing %s %s", day, slot)
			}
			if _, err := ParseMealItems(items); err != nil {
				return fmt.Errorf("%s %s: %w", day, slot, err)
			}
		}
	}
	return nil
}

// ParseMealItems decodes and validates a two-item slot from model output.
func ParseMealItems(raw json.RawMessage) ([]MealItem, error) {
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("items are not a list of objects: %w", err)
	}
	if len(entries) != 2 {
		return nil, fmt.Errorf("expected 2 items, got %d", len(entries))
	}

	items := make([]MealItem, 0, len(entries))
	for i, e := range entries {
		var item MealItem
		if err := json.Unmarshal(e["food_title"], &item.FoodTitle); err != nil || item.FoodTitle == "" {
			return nil, fmt.Errorf("item %d: food_title must be a non-empty string", i)
		}
		id, ok := e["food_id"]
		if !ok || string(id) == "null" {
			return nil, fmt.Errorf("item %d: food_id is missing", i)
		}
		item.FoodID = id
		if err := json.Unmarshal(e["food_symptoms"], &item.FoodSymptoms); err != nil || item.FoodSymptoms == nil {
			return nil, fmt.Errorf("item %d: food_symptoms must be a list of strings", i)
		}
		items = append(items, item)
	}
	return items, nil
}

// parseSelectedMeal reads the two items a caller wants swapped. Only the
// non-empty title is required; symptoms default to an empty list.
func parseSelectedMeal(raw json.RawMessage) ([2]MealItem, error) {
	var selected [2]MealItem
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return selected, fmt.Errorf("%w: meal is not a list of objects", ErrMalformedMeal)
	}
	if len(entries) < 2 {
		return selected, fmt.Errorf("%w: expected at least 2 items, got %d", ErrMalformedMeal, len(entries))
	}
	for i := range selected {
		e := entries[i]
		if err := json.Unmarshal(e["food_title"], &selected[i].FoodTitle); err != nil || selected[i].FoodTitle == "" {
			return selected, fmt.Errorf("%w: item %d has no food_title", ErrMalformedMeal, i)
		}
		if sym, ok := e["food_symptoms"]; ok && string(sym) != "null" {
			if err := json.Unmarshal(sym, &selected[i].FoodSymptoms); err != nil {
				return selected, fmt.Errorf("%w: item %d food_symptoms must be a list of strings", ErrMalformedMeal, i)
			}
		}
		if selected[i].FoodSymptoms == nil {
			selected[i].FoodSymptoms = []string{}
		}
		selected[i].FoodID = e["food_id"]
	}
	return selected, nil
}

// decodeObject walks a JSON object in document order.
func decodeObject(data []byte, fn func(key string, value json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotObject
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(key); err != nil {
		return err
	}
	// Encode terminates with a newline; swap it for the separator.
	buf.Truncate(buf.Len() - 1)
	buf.WriteByte(':')
	return nil
}
