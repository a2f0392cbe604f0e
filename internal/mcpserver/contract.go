package mcpserver

// LayoutContract describes the markup a page and its shared fragments
// must carry for the decorator to work on them.
const LayoutContract = `# Lintel Layout Contract

Pages share one header and one footer. Both live next to each other in the
layout directory (` + "`" + `layout.base_url` + "`" + `) as ` + "`" + `header.html` + "`" + ` and ` + "`" + `footer.html` + "`" + `.

## Page placeholders

` + "```" + `html
<div id="layout-header"></div>
<main>...</main>
<div id="layout-footer"></div>
` + "```" + `

1. A placeholder that is absent is skipped; its fragment is not fetched.
2. Fragment markup is appended after whatever the placeholder already holds.
3. If any fragment cannot be loaded, every placeholder shows
   ` + "`" + `<p class="layout-load-error">Failed to load page layout.</p>` + "`" + ` instead.
4. Markdown pages get both placeholders automatically.

## Navigation

` + "```" + `html
<ul class="menu">
  <li><a href="/">Home</a></li>
  <li><a href="/about.html">About</a></li>
  <li><a href="/datasets/">Datasets</a></li>
</ul>
` + "```" + `

- Only links inside an element with class ` + "`" + `menu` + "`" + ` are considered.
- The matching ` + "`" + `<li>` + "`" + ` receives class ` + "`" + `current-menu-item` + "`" + ` and
  ` + "`" + `aria-current="page"` + "`" + `; every other entry loses both.
- Paths compare case-insensitively with trailing ` + "`" + `/` + "`" + ` and ` + "`" + `index.html` + "`" + ` ignored.
- Links containing ` + "`" + `://` + "`" + ` are left untouched.
- Pages whose path contains ` + "`" + `dataset-pages.html` + "`" + ` highlight the entry
  whose link contains ` + "`" + `datasets` + "`" + `.

## Clock

` + "```" + `html
<span id="bloglo-date"></span> <span id="bloglo-time"></span>
` + "```" + `

Both elements must be present, otherwise neither is written. The date is
` + "`" + `YYYY-MM-DD` + "`" + ` and the time ` + "`" + `HH:MM:SS` + "`" + ` on a 24-hour clock.
Connected browsers receive ` + "`" + `clock.tick` + "`" + ` events on ` + "`" + `/events` + "`" + `.
`
