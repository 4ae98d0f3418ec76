package activity

// applyUpdates maps reviewer corrections onto the activity. Keys follow the
// activity's JSON field names. An unknown key or a wrong-typed value is a
// ValidationError; callers apply updates to a copy so a failed update
// leaves the stored record untouched.
func applyUpdates(a *Activity, updates map[string]any) error {
	for key, value := range updates {
		var err error
		switch key {
		case "title":
			err = setString(&a.Title, key, value)
		case "description":
			err = setString(&a.Description, key, value)
		case "customerName":
			err = setString(&a.CustomerName, key, value)
		case "contactInfo":
			err = setString(&a.ContactInfo, key, value)
		case "dueDate":
			err = setString(&a.DueDate, key, value)
		case "priority":
			err = setString(&a.Priority, key, value)
		case "activityType":
			err = setString(&a.ActivityType, key, value)
		case "category":
			err = setString(&a.Category, key, value)
		case "subCategory":
			err = setString(&a.Classification.SuggestedSubCategory, key, value)
		case "estimatedValue":
			// JSON numbers decode as float64.
			f, ok := value.(float64)
			if !ok {
				err = &ValidationError{Field: key, Message: "must be a number"}
			} else {
				a.EstimatedValue = f
			}
		case "actionItems":
			a.ActionItems, err = toStringSlice(key, value)
		case "tags":
			a.Tags, err = toStringSlice(key, value)
		default:
			err = &ValidationError{Field: key, Message: "unknown field"}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, key string, value any) error {
	s, ok := value.(string)
	if !ok {
		return &ValidationError{Field: key, Message: "must be a string"}
	}
	*dst = s
	return nil
}

func toStringSlice(key string, value any) ([]string, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, &ValidationError{Field: key, Message: "must be a list of strings"}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, &ValidationError{Field: key, Message: "must be a list of strings"}
		}
		out = append(out, s)
	}
	return out, nil
}
