// Package docs embeds the user documentation of the rebal command.
package docs

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strings"
)

//go:embed *.md
var docs embed.FS

// Topic is a documentation topic listed in the index.
type Topic struct {
	Name    string
	Summary string
}

// topicLine matches an index entry like "* replay: how holdings are rebuilt".
var topicLine = regexp.MustCompile(`^\*\s+([^:]+):\s*(.*)$`)

// Index returns the topics listed in readme.md, in order.
func Index() ([]Topic, error) {
	content, err := docs.ReadFile("readme.md")
	if err != nil {
		return nil, fmt.Errorf("documentation index not found: %w", err)
	}
	var topics []Topic
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		if m := topicLine.FindStringSubmatch(scanner.Text()); m != nil {
			topics = append(topics, Topic{Name: strings.TrimSpace(m[1]), Summary: strings.TrimSpace(m[2])})
		}
	}
	return topics, scanner.Err()
}

// GetTopic returns the content of a documentation topic. "*" is every topic,
// the empty topic is the index.
func GetTopic(topic string) (string, error) {
	switch topic {
	case "*":
		return GetTopics(topic)
	case "":
		topic = "readme"
	}

	content, err := docs.ReadFile(topic + ".md")
	if err != nil {
		return "", fmt.Errorf("topic %q not found: %w", topic, err)
	}
	return string(content), nil
}

// GetTopics returns the content of multiple documentation topics concatenated together.
func GetTopics(topics ...string) (string, error) {
	var b bytes.Buffer
	for _, topic := range topics {
		names := []string{topic}
		if topic == "*" {
			all, err := GetAllTopics()
			if err != nil {
				return "", err
			}
			names = all
		}
		for _, name := range names {
			content, err := GetTopic(name)
			if err != nil {
				return "", err
			}
			b.WriteString(content)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// GetAllTopics returns the sorted list of all available documentation topics.
func GetAllTopics() ([]string, error) {
	files, err := fs.Glob(docs, "*.md")
	if err != nil {
		return nil, err
	}
	var topics []string
	for _, f := range files {
		base := strings.TrimSuffix(f, path.Ext(f))
		if base == "readme" {
			continue
		}
		topics = append(topics, base)
	}
	slices.Sort(topics)
	return topics, nil
}
