package chat

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Rule maps any of its keywords to a canned reply.
type Rule struct {
	Keywords []string `yaml:"keywords" json:"keywords"`
	Reply    string   `yaml:"reply" json:"reply"`
}

// Script is everything the responder needs to know about the demo persona.
type Script struct {
	Greeting          string        `yaml:"greeting"`
	Rules             []Rule        `yaml:"rules"`
	DefaultReply      string        `yaml:"default_reply"`
	FallbackReply     string        `yaml:"fallback_reply"`
	SystemInstruction string        `yaml:"system_instruction"`
	TypingDelay       time.Duration `yaml:"typing_delay"`
	TypingJitter      time.Duration `yaml:"typing_jitter"`
}

func DefaultScript() Script {
	return Script{
		Greeting: "Hi, this is VitaCare. We missed your call. How can we help?",
		Rules: []Rule{
			{
				Keywords: []string{"price", "cost", "much"},
				Reply:    "It depends on the treatment, but exams start at $99. Would you like to book a consultation to get an exact quote?",
			},
			{
				Keywords: []string{"yes", "sure", "ok", "yeah"},
				Reply:    "Great! We have openings tomorrow at 10:00 AM or 2:00 PM. Which one works best for you?",
			},
			{
				Keywords: []string{"10", "2", "pm", "am", "morning"},
				Reply:    "Perfect. I've locked that time in for you. We'll see you then! 🦷",
			},
			{
				Keywords: []string{"insurance"},
				Reply:    "We accept most major PPO insurance plans. We can verify your coverage when you come in. Shall we book a time?",
			},
		},
		DefaultReply:  "I can help with that. Since we missed your call earlier, would you like to schedule a quick check-up? We have time tomorrow.",
		FallbackReply: "I'm having trouble checking the schedule right now. Can you try again in a moment?",
		SystemInstruction: `Role: You are "Sarah," the Front Desk Assistant for "VitaCare Dental".
Goal: Book an appointment. Be short, friendly, and human.
Context: You missed their call.
Rules:
1. Keep texts under 20 words.
2. Offer two times: "Tomorrow at 10 AM or 2 PM?"
3. No medical advice.`,
		TypingDelay: 1500 * time.Millisecond,
	}
}

// LoadScript reads a YAML script. Fields left empty keep DefaultScript values.
func LoadScript(path string) (Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	s := DefaultScript()
	var file Script
	if err := yaml.Unmarshal(b, &file); err != nil {
		return Script{}, fmt.Errorf("parse chat script %s: %w", path, err)
	}
	if file.Greeting != "" {
		s.Greeting = file.Greeting
	}
	if file.Rules != nil {
		s.Rules = file.Rules
	}
	if file.DefaultReply != "" {
		s.DefaultReply = file.DefaultReply
	}
	if file.FallbackReply != "" {
		s.FallbackReply = file.FallbackReply
	}
	if file.SystemInstruction != "" {
		s.SystemInstruction = file.SystemInstruction
	}
	if file.TypingDelay > 0 {
		s.TypingDelay = file.TypingDelay
	}
	if file.TypingJitter > 0 {
		s.TypingJitter = file.TypingJitter
	}
	return s, s.Validate()
}

func (s Script) Validate() error {
	if strings.TrimSpace(s.Greeting) == "" {
		return fmt.Errorf("chat script: greeting is required")
	}
	if strings.TrimSpace(s.DefaultReply) == "" {
		return fmt.Errorf("chat script: default_reply is required")
	}
	if strings.TrimSpace(s.FallbackReply) == "" {
		return fmt.Errorf("chat script: fallback_reply is required")
	}
	for i, r := range s.Rules {
		if len(r.Keywords) == 0 || r.Reply == "" {
			return fmt.Errorf("chat script: rule %d needs keywords and a reply", i)
		}
	}
	return nil
}

// Match picks the reply for text: first rule with a keyword contained in
// the text (case-insensitive) wins, DefaultReply otherwise. It looks only
// at text, never at earlier messages.
func (s Script) Match(text string) string {
	lower := strings.ToLower(text)
	for _, r := range s.Rules {
		for _, k := range r.Keywords {
			if k != "" && strings.Contains(lower, strings.ToLower(k)) {
				return r.Reply
			}
		}
	}
	return s.DefaultReply
}
