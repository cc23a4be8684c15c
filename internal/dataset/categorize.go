package dataset

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Topics assigned by Categorize.
const (
	TopicBitcoinMixer     = "bitcoin_mixer"
	TopicBitcoinGenerator = "bitcoin_generator"
	TopicStolenBitcoin    = "stolen_bitcoin"
	TopicHacking          = "hacking"
	TopicStolenFunds      = "stolen_funds"
	TopicMarket           = "market"
	TopicWebsiteList      = "website_list"
	TopicPornography      = "pornography"
	TopicAbusiveContent   = "abusive_content"
	TopicOther            = "other"
)

// Keywords are substrings, so "multipl" covers "multiply" and "multiplier".
var (
	bitcoinKeywords   = []string{"bitcoin", "btc", "bit"}
	mixerKeywords     = []string{"mixer"}
	generatorKeywords = []string{"generat", "miner", "double", "triple", "multipl"}
	stolenKeywords    = []string{"wallet", "hack", "private key"}
	hackKeywords      = []string{"hack"}
	fundsKeywords     = []string{"card", "paypal", "western union", "transfer", "money", "cash"}
	marketKeywords    = []string{"market", "buy", "sale", "sell"}
	listKeywords      = []string{"list", "link", "dir"}
	pornKeywords      = []string{"porn", "fuck"}
	abuseKeywords     = []string{"cp", "rape", "pedo", "teen", "child", "underage", "young"}
)

// Categorize derives topics from a page title and joins them with ", ".
// Matching is a case-insensitive substring test. A title that matches no
// topic is "other".
func Categorize(title string) string {
	folded := cases.Fold().String(title)
	has := func(keywords []string) bool {
		for _, kw := range keywords {
			if strings.Contains(folded, kw) {
				return true
			}
		}
		return false
	}

	topics := make([]string, 0, 2)
	if has(bitcoinKeywords) {
		if has(mixerKeywords) {
			topics = append(topics, TopicBitcoinMixer)
		}
		if has(generatorKeywords) {
			topics = append(topics, TopicBitcoinGenerator)
		}
		if has(stolenKeywords) {
			topics = append(topics, TopicStolenBitcoin)
		}
	} else if has(hackKeywords) {
		topics = append(topics, TopicHacking)
	}
	if has(fundsKeywords) {
		topics = append(topics, TopicStolenFunds)
	}
	if has(marketKeywords) {
		topics = append(topics, TopicMarket)
	}
	if has(listKeywords) {
		topics = append(topics, TopicWebsiteList)
	}
	if has(pornKeywords) {
		topics = append(topics, TopicPornography)
	}
	if has(abuseKeywords) {
		topics = append(topics, TopicAbusiveContent)
	}

	if len(topics) == 0 {
		return TopicOther
	}
	return strings.Join(topics, ", ")
}

// SplitTopics is the inverse of the join in Categorize.
func SplitTopics(topic string) []string {
	if topic == "" {
		return nil
	}
	return strings.Split(topic, ", ")
}

// TopicLabel turns "bitcoin_mixer" into "Bitcoin Mixer".
func TopicLabel(topic string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(topic, "_", " "))
}
