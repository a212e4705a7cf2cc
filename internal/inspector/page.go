package inspector

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"sitefinity-mcp-server/internal/editor"
	"sitefinity-mcp-server/internal/mcp"
	"sitefinity-mcp-server/internal/render"
)

type pageTool struct {
	Name        string
	Description string
}

type pageDraft struct {
	Name        string
	Description string
	Noun        string
	ParentLabel string
	Document    string
}

type pageData struct {
	Title     string
	Version   string
	NeedsKey  bool
	Content   []pageTool
	Parents   []pageTool
	Drafts    []pageDraft
	MCPPath   string
	ToastWait int
}

// toastMillis is how long a notification stays visible.
const toastMillis = 5000

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body{margin:0;font:14px/1.4 ui-sans-serif,system-ui,sans-serif;background:#f4f6f8;color:#1f2937}
.top{padding:12px 16px;background:#0f172a;color:#fff;display:flex;gap:16px;align-items:center;flex-wrap:wrap}
.top input{max-width:260px;padding:6px 8px;border-radius:6px;border:1px solid #334155}
.muted{color:#94a3b8}
.wrap{display:grid;grid-template-columns:minmax(320px,440px) 1fr;height:calc(100vh - 52px)}
.tools-column,.results-column{overflow:auto;padding:12px 14px}
.results-column{background:#fff;border-left:1px solid #dbe1e8}
details{border:1px solid #e5e7eb;border-radius:10px;padding:8px 10px;margin:10px 0;background:#fff}
summary{cursor:pointer;font-weight:600}
.tool{display:flex;gap:8px;align-items:flex-start;margin:8px 0}
.tool p{margin:2px 0;color:#64748b;font-size:12px}
button{background:#0f172a;color:#fff;border:none;border-radius:8px;padding:6px 10px;cursor:pointer;white-space:nowrap}
button.secondary{background:#e2e8f0;color:#0f172a}
textarea{width:100%;min-height:220px;font:12px/1.4 ui-monospace,monospace;border:1px solid #cbd5e1;border-radius:8px;padding:8px;box-sizing:border-box}
pre{white-space:pre-wrap;word-break:break-word;background:#0b1020;color:#dbeafe;padding:12px;border-radius:10px;overflow:auto}
.result-item{border:1px solid #e5e7eb;border-radius:10px;padding:8px 12px;margin:10px 0}
.result-item h3{margin:4px 0 8px}
.property-name{font-weight:600;color:#334155}
.thumbnail{max-width:160px;max-height:120px;border-radius:6px}
.alert{padding:10px 12px;border-radius:8px;margin:8px 0}
.alert.success{background:#dcfce7;color:#166534}
.alert.error{background:#fee2e2;color:#991b1b}
.notification{position:fixed;right:16px;bottom:16px;background:#166534;color:#fff;padding:10px 14px;border-radius:10px;opacity:0;transform:translateY(20px);transition:all .3s;pointer-events:none}
.notification.error{background:#991b1b}
.notification.show{opacity:1;transform:none}
#toggle-results-btn{display:none}
@media (max-width:800px){
.wrap{grid-template-columns:1fr;height:auto}
.results-column{display:none;border-left:none}
.results-column.mobile-visible{display:block}
#toggle-results-btn{display:block;position:fixed;left:16px;bottom:16px}
}
</style></head>
<body>
<div class="top"><strong>{{.Title}}</strong><span class="muted">v{{.Version}}</span>
{{if .MCPPath}}<span class="muted">MCP: <code>{{.MCPPath}}</code></span>{{end}}
{{if .NeedsKey}}<input id="api-key" type="password" placeholder="API key">{{end}}
</div>
<div class="wrap">
<div class="tools-column">
<details open><summary>Content</summary>
{{range .Content}}<div class="tool"><button data-tool="{{.Name}}" class="run">{{.Name}}</button><p>{{.Description}}</p></div>
{{end}}</details>
<details><summary>Parents</summary>
{{range .Parents}}<div class="tool"><button data-tool="{{.Name}}" class="run">{{.Name}}</button><p>{{.Description}}</p></div>
{{end}}</details>
<details><summary>Drafts</summary>
{{range .Drafts}}<details><summary>{{.Noun}}</summary>
<p class="muted">{{.Description}}</p>
<textarea id="editor-{{.Name}}" spellcheck="false">{{.Document}}</textarea>
<div class="tool">{{if .ParentLabel}}<button class="secondary load" data-tool="{{.Name}}">Load {{.ParentLabel}}</button>{{end}}<button class="create" data-tool="{{.Name}}">Create Draft</button></div>
</details>
{{end}}</details>
</div>
<div class="results-column">
<div id="results-container"><pre id="results">Run a tool to see results.</pre></div>
</div>
</div>
<button id="toggle-results-btn"><span class="toggle-text">Show Results</span> <span class="toggle-icon">↑</span></button>
<div id="notification" class="notification"><span class="icon"></span> <span class="message"></span></div>
<script>
const byId=id=>document.getElementById(id);
const toastWait={{.ToastWait}};
let toastTimer=null;
function headers(){
  const h={'Content-Type':'application/json'};
  const key=byId('api-key');
  if(key&&key.value){h['X-API-Key']=key.value;}
  return h;
}
function showText(text){
  byId('results-container').innerHTML='<pre id="results"></pre>';
  byId('results').textContent=text;
}
function showNotification(message,level){
  const n=byId('notification');
  n.querySelector('.message').textContent=message;
  n.querySelector('.icon').innerHTML=level==='error'?'&#10060;':'&#10004;';
  n.className='notification'+(level==='error'?' error':'');
  n.classList.add('show');
  clearTimeout(toastTimer);
  toastTimer=setTimeout(()=>n.classList.remove('show'),toastWait);
}
function toggleMobileResults(){
  const col=document.querySelector('.results-column');
  const btn=byId('toggle-results-btn');
  const visible=col.classList.toggle('mobile-visible');
  btn.querySelector('.toggle-text').textContent=visible?'Hide Results':'Show Results';
  btn.querySelector('.toggle-icon').textContent=visible?'↓':'↑';
  if(visible){byId('results-container').scrollTop=0;}
}
async function post(url,body){
  const res=await fetch(url,{method:'POST',headers:headers(),body:JSON.stringify(body)});
  let data={};
  try{data=await res.json();}catch(e){data={detail:'HTTP error! status: '+res.status};}
  return {ok:res.ok,data};
}
async function runTool(name){
  showText('Loading...');
  try{
    const {ok,data}=await post('/api/run-tool',{name,params:{}});
    if(data.html){byId('results-container').innerHTML=data.html;}
    else if(!ok){showText('Error: '+(data.detail||'request failed'));}
  }catch(e){showText('Error: '+e.message);}
}
async function loadParents(tool){
  const editor=byId('editor-'+tool);
  try{
    const {ok,data}=await post('/api/editor/'+tool,{text:editor.value});
    if(!ok){showNotification(data.detail||'Could not load parents','error');return;}
    editor.value=data.text;
    if(data.html){byId('results-container').innerHTML=data.html;}
  }catch(e){showNotification(e.message,'error');}
}
async function createDraft(tool){
  const editor=byId('editor-'+tool);
  showText('Creating draft...');
  try{
    const {data}=await post('/api/drafts/'+tool,{text:editor.value});
    if(data.html){byId('results-container').innerHTML=data.html;}
    else{showText(data.detail||'');}
    if(data.notification){showNotification(data.notification.message,data.notification.level);}
  }catch(e){showText('Error: '+e.message);showNotification(e.message,'error');}
}
document.querySelectorAll('button.run').forEach(b=>b.addEventListener('click',()=>runTool(b.dataset.tool)));
document.querySelectorAll('button.load').forEach(b=>b.addEventListener('click',()=>loadParents(b.dataset.tool)));
document.querySelectorAll('button.create').forEach(b=>b.addEventListener('click',()=>createDraft(b.dataset.tool)));
byId('toggle-results-btn').addEventListener('click',toggleMobileResults);
</script>
</body></html>`))

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, s.pageData()); err != nil {
		s.logger.Error("render inspector page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) pageData() pageData {
	data := pageData{
		Title:     "Sitefinity MCP Inspector",
		Version:   s.version,
		NeedsKey:  s.cfg.APIKey != "",
		MCPPath:   s.mcpPath,
		ToastWait: toastMillis,
	}
	if s.mcpHandler == nil {
		data.MCPPath = ""
	}

	for _, info := range s.tools.Tools() {
		if d, ok := editor.Lookup(info.Name); ok {
			data.Drafts = append(data.Drafts, newPageDraft(info, d))
			continue
		}
		tool := pageTool{Name: info.Name, Description: info.Description}
		if _, ok := render.ParentViewFor(info.Name); ok {
			data.Parents = append(data.Parents, tool)
			continue
		}
		data.Content = append(data.Content, tool)
	}
	return data
}

func newPageDraft(info mcp.ToolInfo, d editor.Draft) pageDraft {
	doc, err := editor.Template(info.Name)
	text := "{}"
	if err == nil {
		if raw, err := json.MarshalIndent(doc, "", "  "); err == nil {
			text = string(raw)
		}
	}
	return pageDraft{
		Name:        info.Name,
		Description: info.Description,
		Noun:        draftNoun(info.Name),
		ParentLabel: d.ParentLabel,
		Document:    text,
	}
}
