package server

// indexHTML は結果テキストと学習ボタンだけのビューア
const indexHTML = `<!DOCTYPE html>
<html lang="ru">
<head>
    <meta charset="UTF-8">
    <title>MemePulse</title>
    <style>
        body { font-family: sans-serif; text-align: center; margin-top: 2em; }
        #preview { max-width: 480px; border-radius: 8px; }
        #result { font-size: 2em; margin: 0.5em; }
    </style>
</head>
<body>
    <img id="preview" alt="">
    <div id="result">Анализ...</div>
    <button id="train">Обучить модель</button>
    <script>
        const result = document.getElementById('result');
        const train = document.getElementById('train');
        const preview = document.getElementById('preview');

        function render(state) {
            result.textContent = state.result;
            train.textContent = state.button_label;
            train.disabled = state.button_disabled;
        }

        const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(proto + location.host + '/api/ws');
        ws.onmessage = (event) => render(JSON.parse(event.data));

        train.addEventListener('click', () => {
            fetch('/api/train', { method: 'POST' }).catch(console.error);
        });

        setInterval(() => {
            preview.src = '/api/frame?t=' + Date.now();
        }, 1500);
    </script>
</body>
</html>
`
