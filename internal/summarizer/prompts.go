package summarizer

const (
	newsDataPlaceholder    = "{{newsData}}"
	userProfilePlaceholder = "{{userProfile}}"
)

// newsSummaryPrompt asks for an HTML fragment dropped straight into the digest email.
const newsSummaryPrompt = `You write the body of a daily market news email for a retail investor.

Summarize the articles below. For each article produce one section:
- an <h3 style="color: #FDD458; font-size: 18px; margin: 24px 0 8px 0;"> with a short, plain-language title
- a <p style="color: #CCDADC; font-size: 15px; line-height: 1.6; margin: 0 0 8px 0;"> explaining what happened and why it may matter to investors, in two or three sentences
- an <a href="ARTICLE_URL" style="color: #FDD458; font-size: 14px;">Read full story &rarr;</a> link using the article url

Rules:
1. Output HTML only. No Markdown, no code fences, no <html>, <head> or <body> tags.
2. Keep a neutral tone. Do not give investment advice.
3. Do not invent facts that are not implied by the headline.

Articles (JSON):
{{newsData}}`

// welcomePrompt asks for a short personalised introduction paragraph.
const welcomePrompt = `Write a personalised welcome paragraph for a new user of Signalist, a stock market tracking app.

User profile:
{{userProfile}}

Rules:
1. Two or three sentences, plain text only.
2. Reference the user's goals, risk tolerance or preferred industry where it reads naturally.
3. Be warm and concise. Do not give investment advice.`

// defaultWelcomeIntro is used whenever the welcome completion fails.
const defaultWelcomeIntro = "Thanks for joining Signalist. You now have the tools to track markets and make smarter moves."
