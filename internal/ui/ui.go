package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/pitch/internal/formatter"
	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/services"
	"github.com/desertthunder/pitch/internal/shared"
	"github.com/desertthunder/pitch/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistView ViewState = iota
	FilterView
	IngestView
	ComposeView
	PreviewView
	ConfirmView
	SendView
)

// compose field indexes
const (
	fieldTrackID = iota
	fieldTrackName
	fieldDescription
	fieldLanguage
)

// preview field indexes
const (
	editSubject = iota
	editTemplate
	editBCC
	editFields
)

// Options configures exports and defaults of the TUI.
type Options struct {
	OutputDir       string
	Format          models.Format
	Columns         []models.Column
	Labels          bool
	DefaultCap      int
	DefaultLanguage string
	Progress        <-chan tasks.ProgressUpdate // updates emitted by the session's controllers
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	session *tasks.Session
	opts    Options
	view    ViewState
	width   int
	height  int

	playlists list.Model
	query     textinput.Model
	path      textinput.Model
	compose   []textinput.Model
	focus     int

	subject  textinput.Model
	template textarea.Model
	bcc      textinput.Model
	preview  viewport.Model
	editing  int

	capInput textinput.Model
	plan     *tasks.SendPlan

	log       viewport.Model
	lines     []models.SendLine
	result    *tasks.SendResult
	sendLines chan models.SendLine
	sendDone  chan Msg

	spinner spinner.Model
	busy    string
	status  string
	err     error
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model over session.
func NewModel(ctx context.Context, session *tasks.Session, opts Options) *Model {
	if opts.Format == "" {
		opts.Format = models.FormatCSV
	}
	if len(opts.Columns) == 0 {
		opts.Columns = models.Columns
	}
	if opts.DefaultCap <= 0 {
		opts.DefaultCap = models.MaxRecipientCap
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = models.DefaultLanguage
	}

	m := &Model{
		ctx:     ctx,
		session: session,
		opts:    opts,
		view:    PlaylistView,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
		keys:    newKeyMap(),
	}

	m.playlists = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.playlists.SetFilteringEnabled(false)
	m.playlists.SetShowHelp(false)
	m.refreshPlaylists()

	m.query = newInput("Describe the playlists to keep: ", "e.g. chill lofi with female vocals")
	m.path = newInput("Spreadsheet: ", "path/to/playlists.xlsx")
	m.compose = []textinput.Model{
		newInput("Track ID: ", "spotify track id"),
		newInput("Track name: ", "optional"),
		newInput("Song description: ", "genre, mood, story"),
		newInput("Language: ", opts.DefaultLanguage),
	}
	m.compose[fieldLanguage].SetValue(opts.DefaultLanguage)

	m.subject = newInput("Subject: ", "")
	m.bcc = newInput("BCC: ", "optional")
	m.template = textarea.New()
	m.template.ShowLineNumbers = false
	m.template.SetHeight(8)
	m.preview = viewport.New(0, 6)

	m.capInput = newInput("Recipient cap: ", fmt.Sprintf("1-%d", models.MaxRecipientCap))
	m.log = viewport.New(0, 10)

	return m
}

func newInput(prompt, placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = placeholder
	return ti
}

// Init starts listening for controller progress.
func (m *Model) Init() tea.Cmd {
	return waitForProgress(m.opts.Progress)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		switch m.view {
		case PlaylistView:
			return m.handlePlaylistKeys(msg)
		case FilterView, IngestView:
			return m.handlePromptKeys(msg)
		case ComposeView:
			return m.handleComposeKeys(msg)
		case PreviewView:
			return m.handlePreviewKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SendView:
			return m.handleSendKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgress:
		update := msg.data.(tasks.ProgressUpdate)
		if update.Message != "" {
			m.status = update.Message
		}
		return m, waitForProgress(m.opts.Progress)

	case MsgFilterApplied:
		out := msg.data.(outcome[*tasks.FilterResult])
		m.busy = ""
		m.refreshPlaylists()
		if out.err != nil {
			m.err = out.err
			return m, nil
		}
		m.err = nil
		m.status = out.value.Message
		m.view = PlaylistView
		return m, nil

	case MsgIngested:
		out := msg.data.(outcome[int])
		m.busy = ""
		if out.err != nil {
			m.err = out.err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Loaded %d playlists.", out.value)
		m.refreshPlaylists()
		m.view = PlaylistView
		return m, nil

	case MsgPreviewReady:
		out := msg.data.(outcome[*models.Campaign])
		m.busy = ""
		m.err = out.err
		if out.value == nil {
			return m, nil
		}
		m.loadCampaign(out.value)
		m.view = PreviewView
		return m, m.focusEdit(editSubject)

	case MsgExported:
		out := msg.data.(outcome[*formatter.ExportResult])
		m.busy = ""
		if out.err != nil {
			m.err = out.err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Exported %d playlists to %s", out.value.Rows, out.value.Path)
		return m, nil

	case MsgSendLine:
		line := msg.data.(models.SendLine)
		m.lines = append(m.lines, line)
		m.renderLog()
		return m, waitForLine(m.sendLines, m.sendDone)

	case MsgSendComplete:
		out := msg.data.(outcome[*tasks.SendResult])
		m.busy = ""
		m.result = out.value
		m.err = out.err
		m.plan = nil
		m.sendLines, m.sendDone = nil, nil
		if out.value != nil {
			m.lines = out.value.Lines
			m.renderLog()
		}
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case PlaylistView:
		body = m.renderPlaylists()
	case FilterView:
		body = m.renderPrompt("AI Filter", m.query, "Leave empty to show every playlist.")
	case IngestView:
		body = m.renderPrompt("Upload Playlists", m.path, "Replaces the current playlists with the spreadsheet contents.")
	case ComposeView:
		body = m.renderCompose()
	case PreviewView:
		body = m.renderPreview()
	case ConfirmView:
		body = m.renderConfirm()
	case SendView:
		body = m.renderSend()
	}

	return fmt.Sprintf("%s\n%s\n%s", body, m.renderStatus(), m.renderHelp())
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.filter):
		m.err = nil
		m.view = FilterView
		return m, m.query.Focus()
	case key.Matches(msg, m.keys.clear):
		return m.startFilter("")
	case key.Matches(msg, m.keys.ingest):
		m.err = nil
		m.view = IngestView
		return m, m.path.Focus()
	case key.Matches(msg, m.keys.compose):
		m.err = nil
		m.view = ComposeView
		return m, m.focusCompose(fieldTrackID)
	case key.Matches(msg, m.keys.edit):
		if c := m.session.Campaign.Campaign(); c != nil && m.session.Campaign.State() == models.PreviewReady {
			m.loadCampaign(c)
			m.view = PreviewView
			return m, m.focusEdit(editSubject)
		}
		return m, nil
	case key.Matches(msg, m.keys.export):
		return m.startExport()
	}

	var cmd tea.Cmd
	m.playlists, cmd = m.playlists.Update(msg)
	return m, cmd
}

// handlePromptKeys serves the single-input filter and ingest views.
func (m *Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	input := &m.query
	if m.view == IngestView {
		input = &m.path
	}

	switch msg.String() {
	case "esc":
		input.Blur()
		m.view = PlaylistView
		return m, nil
	case "enter":
		if m.busy != "" {
			return m, nil
		}
		input.Blur()
		if m.view == IngestView {
			return m.startIngest(input.Value())
		}
		return m.startFilter(input.Value())
	}

	var cmd tea.Cmd
	*input, cmd = input.Update(msg)
	return m, cmd
}

func (m *Model) handleComposeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.compose[m.focus].Blur()
		m.view = PlaylistView
		return m, nil
	case "tab", "down":
		return m, m.focusCompose((m.focus + 1) % len(m.compose))
	case "shift+tab", "up":
		return m, m.focusCompose((m.focus + len(m.compose) - 1) % len(m.compose))
	case "enter", "ctrl+s":
		if m.focus < len(m.compose)-1 && msg.String() == "enter" {
			return m, m.focusCompose(m.focus + 1)
		}
		return m.startPreview()
	}

	var cmd tea.Cmd
	m.compose[m.focus], cmd = m.compose[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) handlePreviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.blurEdits()
		m.view = PlaylistView
		return m, nil
	case "tab":
		return m, m.focusEdit((m.editing + 1) % editFields)
	case "shift+tab":
		return m, m.focusEdit((m.editing + editFields - 1) % editFields)
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(msg)
		return m, cmd
	case "ctrl+s":
		subject, body, bcc := m.subject.Value(), m.template.Value(), m.bcc.Value()
		if _, err := m.session.Campaign.Edit(tasks.Edits{Subject: &subject, TemplateBody: &body, BCC: &bcc}); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.blurEdits()
		m.capInput.SetValue(fmt.Sprint(m.opts.DefaultCap))
		m.view = ConfirmView
		return m, m.capInput.Focus()
	}

	var cmd tea.Cmd
	switch m.editing {
	case editSubject:
		m.subject, cmd = m.subject.Update(msg)
	case editTemplate:
		m.template, cmd = m.template.Update(msg)
	case editBCC:
		m.bcc, cmd = m.bcc.Update(msg)
	}
	return m, cmd
}

// handleConfirmKeys first takes the recipient cap, then a yes or no on the resulting plan.
func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.plan == nil {
		switch msg.String() {
		case "esc":
			m.capInput.Blur()
			m.view = PreviewView
			return m, m.focusEdit(editSubject)
		case "enter":
			plan, err := m.session.Campaign.RequestSend(m.capInput.Value())
			if err != nil {
				m.err = err
				return m, nil
			}
			m.err = nil
			m.plan = plan
			m.capInput.Blur()
			return m, nil
		}

		var cmd tea.Cmd
		m.capInput, cmd = m.capInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.yes):
		return m.startSend()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		if err := m.session.Campaign.Decline(); err != nil {
			m.err = err
		}
		m.plan = nil
		return m, m.capInput.Focus()
	}
	return m, nil
}

func (m *Model) handleSendKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.session.Campaign.Sending() {
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.enter):
		m.result = nil
		m.lines = nil
		m.refreshPlaylists()
		m.view = PlaylistView
		return m, nil
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

// quit refuses to leave while a send stream is open, since the send cannot be cancelled.
func (m *Model) quit() (tea.Model, tea.Cmd) {
	if m.session.Campaign.Sending() {
		m.err = fmt.Errorf("%w: wait for it to finish before quitting", shared.ErrSendInProgress)
		return m, nil
	}
	return m, tea.Quit
}

func (m *Model) startFilter(query string) (tea.Model, tea.Cmd) {
	ctx, filter := m.ctx, m.session.Filter
	m.err = nil
	return m, m.run("Filtering playlists...", func() tea.Msg {
		result, err := filter.Apply(ctx, query)
		return filterAppliedMsg(result, err)
	})
}

func (m *Model) startIngest(path string) (tea.Model, tea.Cmd) {
	path = strings.TrimSpace(path)
	if path == "" {
		m.err = fmt.Errorf("%w: spreadsheet path", shared.ErrMissingArgument)
		return m, nil
	}

	ctx, ingest := m.ctx, m.session.Ingest
	m.err = nil
	return m, m.run("Uploading "+path+"...", func() tea.Msg {
		n, err := ingest.Ingest(ctx, path)
		return ingestedMsg(n, err)
	})
}

func (m *Model) startPreview() (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}
	m.compose[m.focus].Blur()

	ctx, campaign := m.ctx, m.session.Campaign
	in := tasks.PreviewInput{
		TrackID:         m.compose[fieldTrackID].Value(),
		TrackName:       m.compose[fieldTrackName].Value(),
		SongDescription: m.compose[fieldDescription].Value(),
		Language:        m.compose[fieldLanguage].Value(),
	}
	m.err = nil
	return m, m.run("Generating preview...", func() tea.Msg {
		c, err := campaign.GeneratePreview(ctx, in)
		return previewReadyMsg(c, err)
	})
}

func (m *Model) startExport() (tea.Model, tea.Cmd) {
	session := m.session
	req := models.ExportRequest{Columns: m.opts.Columns, Format: m.opts.Format, Labels: m.opts.Labels}
	if c := session.Campaign.Campaign(); c != nil {
		req.TrackName = c.TrackName
	}
	dir := m.opts.OutputDir
	m.err = nil
	return m, m.run("Exporting playlists...", func() tea.Msg {
		result, err := session.Export(req, dir)
		return exportedMsg(result, err)
	})
}

// startSend runs Confirm in the background and relays each log line as it is emitted.
func (m *Model) startSend() (tea.Model, tea.Cmd) {
	lines := make(chan models.SendLine, 64)
	done := make(chan Msg, 1)
	ctx, campaign := m.ctx, m.session.Campaign

	go func() {
		result, err := campaign.Confirm(ctx, func(line models.SendLine) { lines <- line })
		close(lines)
		done <- sendCompleteMsg(result, err)
	}()

	m.sendLines, m.sendDone = lines, done
	m.err = nil
	m.lines = nil
	m.result = nil
	m.renderLog()
	m.view = SendView
	return m, m.run("Sending emails...", waitForLine(lines, done))
}

// run marks the model busy and starts the spinner alongside cmd.
func (m *Model) run(label string, cmd tea.Cmd) tea.Cmd {
	m.busy = label
	return tea.Batch(cmd, m.spinner.Tick)
}

func waitForLine(lines <-chan models.SendLine, done <-chan Msg) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-lines
		if !ok {
			return <-done
		}
		return sendLineMsg(line)
	}
}

func waitForProgress(progress <-chan tasks.ProgressUpdate) tea.Cmd {
	if progress == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return nil
		}
		return progressMsg(update)
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.playlists.SetSize(width-4, max(height-8, 4))
	m.preview.Width = width - 4
	m.preview.Height = max(height/4, 3)
	m.template.SetWidth(max(width-6, 20))
	m.log.Width = width - 4
	m.log.Height = max(height-10, 4)
	m.help.Width = width
}

func (m *Model) refreshPlaylists() {
	m.playlists.SetItems(playlistItems(m.session.Set.Visible()))
	m.playlists.Title = m.session.Set.CountSummary()
}

func (m *Model) loadCampaign(c *models.Campaign) {
	m.subject.SetValue(c.Subject)
	m.template.SetValue(c.TemplateBody)
	m.bcc.SetValue(c.BCC)
	m.preview.SetContent(c.PreviewBody)
	m.preview.GotoTop()
}

func (m *Model) focusCompose(i int) tea.Cmd {
	for j := range m.compose {
		m.compose[j].Blur()
	}
	m.focus = i
	return m.compose[i].Focus()
}

func (m *Model) focusEdit(i int) tea.Cmd {
	m.blurEdits()
	m.editing = i
	switch i {
	case editTemplate:
		return m.template.Focus()
	case editBCC:
		return m.bcc.Focus()
	default:
		return m.subject.Focus()
	}
}

func (m *Model) blurEdits() {
	m.subject.Blur()
	m.template.Blur()
	m.bcc.Blur()
}

func (m *Model) renderLog() {
	rendered := make([]string, len(m.lines))
	for i, line := range m.lines {
		rendered[i] = styles.lineStyle(line).Render(line.Text)
	}
	m.log.SetContent(strings.Join(rendered, "\n"))
	m.log.GotoBottom()
}

func (m *Model) renderPlaylists() string {
	keywords := m.session.Keywords()
	if len(keywords) == 0 {
		return m.playlists.View()
	}
	return fmt.Sprintf("%s\n%s", m.playlists.View(), styles.help.Render("Keywords: "+strings.Join(keywords, ", ")))
}

func (m *Model) renderPrompt(title string, input textinput.Model, hint string) string {
	return fmt.Sprintf("%s\n%s\n\n%s\n", styles.title.Render(title), input.View(), styles.help.Render(hint))
}

func (m *Model) renderCompose() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Generate Email Preview"))
	b.WriteString("\n")
	for _, in := range m.compose {
		b.WriteString(in.View())
		b.WriteString("\n")
	}

	if p := m.session.Set.VisibleContactable(); len(p) > 0 {
		b.WriteString(styles.help.Render(fmt.Sprintf("\nPreview uses %s (%d contactable)", p[0].Name, len(p))))
	} else {
		b.WriteString(styles.warn.Render("\nNo visible playlists have a valid email"))
	}
	return b.String()
}

func (m *Model) renderPreview() string {
	return fmt.Sprintf("%s\n%s\n%s\n\n%s\n%s\n%s\n",
		styles.title.Render("Email Preview"),
		styles.box.Render(m.preview.View()),
		m.subject.View(),
		styles.label.Render("Template"),
		m.template.View(),
		m.bcc.View(),
	)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Send Emails")
	if m.plan == nil {
		available := len(m.session.Set.VisibleContactable())
		return fmt.Sprintf("%s\n%s\n\n%s\n", title, m.capInput.View(),
			styles.help.Render(fmt.Sprintf("%d visible playlists are contactable.", available)))
	}

	subject := ""
	if c := m.session.Campaign.Campaign(); c != nil {
		subject = c.Subject
	}
	return fmt.Sprintf("%s\n%s\n\nSubject: %s\n\n%s\n", title, m.plan.Summary, subject, styles.warn.Render("Sending cannot be cancelled once started."))
}

func (m *Model) renderSend() string {
	title := styles.title.Render("Sending")
	footer := ""
	switch {
	case m.session.Campaign.Sending():
	case m.result != nil && m.result.Failed:
		title = styles.err.Render("Send Failed")
		footer = styles.help.Render("The campaign was kept; open it again with v after returning.")
	case m.result != nil:
		title = styles.ok.Render("✓ Send Complete")
		footer = m.result.Summary
	}
	return fmt.Sprintf("%s\n%s\n%s\n", title, m.log.View(), footer)
}

func (m *Model) renderStatus() string {
	switch {
	case m.busy != "":
		return fmt.Sprintf("%s %s", m.spinner.View(), m.busy)
	case m.err != nil:
		return styles.err.Render("Error: " + errorText(m.err))
	default:
		return m.status
	}
}

func (m *Model) renderHelp() string {
	var bindings []key.Binding
	switch m.view {
	case PlaylistView:
		bindings = []key.Binding{m.keys.filter, m.keys.clear, m.keys.ingest, m.keys.compose, m.keys.edit, m.keys.export, m.keys.quit}
	case FilterView, IngestView:
		bindings = []key.Binding{m.keys.enter, m.keys.back}
	case ComposeView:
		bindings = []key.Binding{m.keys.next, m.keys.enter, m.keys.back}
	case PreviewView:
		bindings = []key.Binding{m.keys.next, m.keys.save, m.keys.back}
	case ConfirmView:
		if m.plan == nil {
			bindings = []key.Binding{m.keys.enter, m.keys.back}
		} else {
			bindings = []key.Binding{m.keys.yes, m.keys.no}
		}
	case SendView:
		if !m.session.Campaign.Sending() {
			bindings = []key.Binding{m.keys.back, m.keys.quit}
		}
	}
	return m.help.ShortHelpView(bindings)
}

// errorText shows backend messages verbatim and everything else as-is.
func errorText(err error) string {
	if services.IsServiceError(err) || errors.Is(err, shared.ErrTransport) {
		return services.Message(err)
	}
	return err.Error()
}
