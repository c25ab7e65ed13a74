package mqtt

import "strings"

// TopicMatches reports whether a concrete topic matches a subscription pattern.
//
// Patterns follow the MQTT wildcard rules used by the breezer topic family:
//   - "+" matches exactly one topic segment, any content
//   - "#" matches the remaining segments (zero or more) and is only
//     recognised as the final pattern segment
//   - any other segment must match the topic segment at that position exactly
//
// Without "#", pattern and topic must have the same number of segments.
// The function is pure: no side effects, result depends only on its inputs.
func TopicMatches(pattern, topic string) bool {
	if pattern == topic {
		return true
	}

	patternParts := strings.Split(pattern, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range patternParts {
		switch part {
		case "#":
			// Legal only as the final segment; a misplaced "#" never matches.
			return i == len(patternParts)-1
		case "+":
			if i >= len(topicParts) {
				return false
			}
		default:
			if i >= len(topicParts) || part != topicParts[i] {
				return false
			}
		}
	}

	return len(patternParts) == len(topicParts)
}
