package rag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		message    string
		hasHistory bool
		want       Intent
	}{
		{"Can you summarize week 3?", false, IntentSummarize},
		{"give me the TLDR", false, IntentSummarize},
		{"Explain gradient descent", false, IntentExplain},
		{"what is a monad", false, IntentExplain},
		{"find the lecture on sorting", false, IntentSearch},
		{"show me the lab files", false, IntentSearch},
		{"generate notes for chapter 2", false, IntentGenerateNotes},
		{"write code for a binary tree", false, IntentGenerateCode},
		{"tell me more about that", true, IntentFollowup},
		{"tell me about recursion please", true, IntentGeneral},
		{"hello there", false, IntentGeneral},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Classify(tc.message, tc.hasHistory), "message: %q", tc.message)
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// summarize outranks explain when both keyword families match
	require.Equal(t, IntentSummarize, Classify("summarize and explain this lecture", true))
	// explain outranks search
	require.Equal(t, IntentExplain, Classify("explain where is the main loop", false))
}

func TestClassifyFollowupNeedsHistory(t *testing.T) {
	require.Equal(t, IntentFollowup, Classify("more about those", true))
	require.Equal(t, IntentGeneral, Classify("more about those", false))
}

func TestClassifyCaseInsensitive(t *testing.T) {
	require.Equal(t, IntentSummarize, Classify("SUMMARIZE the readings", false))
}
